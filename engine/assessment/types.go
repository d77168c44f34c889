package assessment

// Assessment is the trimmed projection of a backend plan.
type Assessment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryName string `json:"category_name"`
}

// Run is the trimmed projection of a plan instance. Full backend payloads
// carry far more; tools only surface what the workflow needs.
type Run struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	AssessmentID     string  `json:"assessmentId"`
	ApplicationType  string  `json:"applicationType"`
	ConfigID         string  `json:"configId"`
	FromDate         string  `json:"fromDate"`
	ToDate           string  `json:"toDate"`
	Started          string  `json:"started"`
	Ended            string  `json:"ended"`
	Status           string  `json:"status"`
	ComputedScore    float64 `json:"computedScore"`
	ComputedWeight   float64 `json:"computedWeight"`
	ComplianceStatus string  `json:"complianceStatus"`
	CreatedAt        string  `json:"createdAt"`
}

// Control is the trimmed projection of a plan instance control.
type Control struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ControlNumber    string `json:"controlNumber"`
	Alias            string `json:"alias"`
	Priority         string `json:"priority"`
	Status           string `json:"status"`
	DueDate          string `json:"dueDate"`
	ComplianceStatus string `json:"complianceStatus"`
}

// Evidence is the trimmed projection of a plan instance evidence entry.
type Evidence struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FileName    string `json:"fileName"`
}

// EvidenceRecord is one row of a decoded evidence file.
type EvidenceRecord struct {
	ID               string `json:"id"`
	ResourceID       string `json:"ResourceID"`
	ResourceName     string `json:"ResourceName"`
	ResourceType     string `json:"ResourceType"`
	ComplianceStatus string `json:"ComplianceStatus"`
}

// ListFilter narrows an assessment listing. All fields are optional;
// name filters match partially.
type ListFilter struct {
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	AssessmentName string `json:"assessment_name"`
}

// ActionQuery identifies where to look for available actions.
type ActionQuery struct {
	AssessmentName string `json:"assessment_name" validate:"required"`
	ControlNumber  string `json:"control_number"`
	ControlAlias   string `json:"control_alias"`
	EvidenceName   string `json:"evidence_name"`
}

// ExecuteParams identifies the action to trigger and its target level.
// Control- and evidence-level fields stay empty for assessment-level
// actions.
type ExecuteParams struct {
	AssessmentID         string   `json:"assessment_id"          validate:"required"`
	RunID                string   `json:"assessment_run_id"      validate:"required"`
	ActionBindingID      string   `json:"action_binding_id"      validate:"required"`
	RunControlID         string   `json:"assessment_run_control_id"`
	RunControlEvidenceID string   `json:"assessment_run_control_evidence_id"`
	EvidenceRecordIDs    []string `json:"evidence_record_ids"`
}
