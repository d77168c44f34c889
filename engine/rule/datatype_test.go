package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policycow/cowmcp/engine/core"
)

func TestParseDataType(t *testing.T) {
	t.Run("Should parse known types case-insensitively", func(t *testing.T) {
		assert.Equal(t, TypeInt, ParseDataType("int"))
		assert.Equal(t, TypeHTTPConfig, ParseDataType("http_config"))
		assert.Equal(t, TypeFile, ParseDataType("FILE"))
	})

	t.Run("Should fall back to STRING for unknown types", func(t *testing.T) {
		assert.Equal(t, TypeString, ParseDataType("VECTOR"))
		assert.Equal(t, TypeString, ParseDataType(""))
	})
}

func TestDataType_Validate(t *testing.T) {
	t.Run("Should convert integer strings", func(t *testing.T) {
		value, err := TypeInt.Validate("42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), value)
	})

	t.Run("Should reject non-integers for INT", func(t *testing.T) {
		_, err := TypeInt.Validate("forty-two")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("Should convert float strings", func(t *testing.T) {
		value, err := TypeFloat.Validate("3.14")
		require.NoError(t, err)
		assert.Equal(t, 3.14, value)
	})

	t.Run("Should accept the boolean vocabulary in any case", func(t *testing.T) {
		for _, raw := range []string{"true", "YES", "1"} {
			value, err := TypeBoolean.Validate(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, true, value, raw)
		}
		for _, raw := range []string{"False", "no", "0"} {
			value, err := TypeBoolean.Validate(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, false, value, raw)
		}
	})

	t.Run("Should reject words outside the boolean vocabulary", func(t *testing.T) {
		_, err := TypeBoolean.Validate("affirmative")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("Should validate DATE and DATETIME layouts", func(t *testing.T) {
		_, err := TypeDate.Validate("2026-08-29")
		require.NoError(t, err)

		_, err = TypeDate.Validate("29/08/2026")
		assert.ErrorIs(t, err, core.ErrValidation)

		_, err = TypeDateTime.Validate("2026-08-29T10:30:00Z")
		require.NoError(t, err)
	})

	t.Run("Should pass strings and file references through unchanged", func(t *testing.T) {
		value, err := TypeString.Validate("anything")
		require.NoError(t, err)
		assert.Equal(t, "anything", value)

		value, err = TypeFile.Validate("https://bucket/file_00042_config.json")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket/file_00042_config.json", value)
	})
}

func TestDataType_IsFileType(t *testing.T) {
	t.Run("Should treat FILE and HTTP_CONFIG as file types", func(t *testing.T) {
		assert.True(t, TypeFile.IsFileType())
		assert.True(t, TypeHTTPConfig.IsFileType())
		assert.False(t, TypeString.IsFileType())
		assert.False(t, TypeBoolean.IsFileType())
	})
}
