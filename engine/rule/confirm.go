package rule

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// Storage types for confirmed values.
const (
	StorageFile   = "FILE"
	StorageMemory = "MEMORY"
)

// Content encodings accepted by UploadFile.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// ConfirmedTemplate is the result of confirming template content. File-typed
// inputs produce an uploaded file URL; everything else stays in memory.
// This is the only point at which a collected value becomes eligible for
// inclusion in the final rule.
type ConfirmedTemplate struct {
	TaskName      string         `json:"task_name"`
	InputName     string         `json:"input_name"`
	FileURL       string         `json:"file_url,omitempty"`
	FileName      string         `json:"filename,omitempty"`
	StoredContent string         `json:"stored_content,omitempty"`
	ContentSize   int            `json:"content_size"`
	StorageType   string         `json:"storage_type"`
	DataType      DataType       `json:"data_type"`
	Format        TemplateFormat `json:"format"`
	Timestamp     time.Time      `json:"timestamp"`
	Message       string         `json:"message"`
}

// UploadResult is the outcome of a file upload.
type UploadResult struct {
	FileURL     string `json:"file_url"`
	FileName    string `json:"filename"`
	FileID      string `json:"file_id"`
	ContentSize int    `json:"content_size"`
	Encoding    string `json:"content_encoding"`
	Message     string `json:"message"`
}

// ConfirmTemplate finalizes confirmed template content. FILE and
// HTTP_CONFIG inputs are uploaded under the deterministic name
// "{taskName}_{inputName}{ext}"; re-confirming unchanged content produces
// the same name and overwrites rather than duplicates. Upload failures do
// not mark the input confirmed.
func (s *Service) ConfirmTemplate(
	ctx context.Context,
	ruleName, taskName, inputName, confirmedContent string,
) (*ConfirmedTemplate, error) {
	log := logger.FromContext(ctx)

	_, input, err := s.catalog.GetInput(ctx, taskName, inputName)
	if err != nil {
		return nil, err
	}

	dataType := ParseDataType(input.DataType)
	format := ParseFormat(input.Format)
	now := time.Now().UTC()

	if !dataType.IsFileType() {
		return &ConfirmedTemplate{
			TaskName:      taskName,
			InputName:     inputName,
			StoredContent: confirmedContent,
			ContentSize:   len(confirmedContent),
			StorageType:   StorageMemory,
			DataType:      dataType,
			Format:        format,
			Timestamp:     now,
			Message:       fmt.Sprintf("Template content stored in memory for %s in %s", inputName, taskName),
		}, nil
	}

	fileName := taskName + "_" + inputName + format.Extension()
	upload, err := s.UploadFile(ctx, ruleName, fileName, confirmedContent, EncodingUTF8)
	if err != nil {
		return nil, err
	}
	log.Info("template file uploaded", "rule", ruleName, "file", fileName, "url", upload.FileURL)

	return &ConfirmedTemplate{
		TaskName:    taskName,
		InputName:   inputName,
		FileURL:     upload.FileURL,
		FileName:    fileName,
		ContentSize: len(confirmedContent),
		StorageType: StorageFile,
		DataType:    dataType,
		Format:      format,
		Timestamp:   now,
		Message:     fmt.Sprintf("Template file uploaded successfully for %s in %s", inputName, taskName),
	}, nil
}

type uploadRequest struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	RuleName    string `json:"ruleName"`
}

type uploadResponse struct {
	FileURL string `json:"fileURL"`
}

// UploadFile uploads file content for use in a rule and returns the stored
// file URL. The unique file name prefix is derived from the content, so
// re-uploading unchanged content targets the same object.
func (s *Service) UploadFile(
	ctx context.Context,
	ruleName, fileName, content, encoding string,
) (*UploadResult, error) {
	var encoded string
	switch encoding {
	case EncodingUTF8, "":
		encoding = EncodingUTF8
		encoded = base64.StdEncoding.EncodeToString([]byte(content))
	case EncodingBase64:
		if _, err := base64.StdEncoding.DecodeString(content); err != nil {
			return nil, core.Validationf("content is not valid base64: %v", err)
		}
		encoded = content
	default:
		return nil, core.Validationf("unsupported encoding: %s", encoding)
	}

	fileID := contentFileID(encoded)
	resp := &uploadResponse{}
	err := s.backend.PostJSON(ctx, backend.PathUploadFile, &uploadRequest{
		FileName:    fileID + "_" + fileName,
		FileContent: encoded,
		RuleName:    ruleName,
	}, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUpload, err)
	}
	if resp.FileURL == "" {
		return nil, core.Uploadf("unable to find the uploaded file URL for '%s'", fileName)
	}

	return &UploadResult{
		FileURL:     resp.FileURL,
		FileName:    fileName,
		FileID:      fileID,
		ContentSize: len(content),
		Encoding:    encoding,
		Message:     fmt.Sprintf("File '%s' uploaded successfully", fileName),
	}, nil
}

// contentFileID derives a stable identifier from the encoded content.
// Identical content always maps to the same identifier, which keeps
// re-uploads idempotent under the deterministic filename contract.
func contentFileID(encodedContent string) string {
	h := fnv.New32a()
	h.Write([]byte(encodedContent))
	return fmt.Sprintf("file_%05d", h.Sum32()%100000)
}
