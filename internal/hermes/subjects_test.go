package hermes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "clearhead.run.abc.completed", SubjectRunCompleted("abc"))
	assert.Equal(t, "clearhead.run.abc.failed", SubjectRunFailed("abc"))
	assert.Equal(t, "clearhead.model.trained", SubjectModelTrained)
}

func TestStreamCoversEventSubjects(t *testing.T) {
	covered := func(subject string) bool {
		for _, pattern := range StreamSubjects {
			prefix := strings.TrimSuffix(pattern, ">")
			if strings.HasPrefix(subject, prefix) {
				return true
			}
		}
		return false
	}
	for _, s := range []string{
		SubjectRunCompleted("r1"),
		SubjectRunFailed("r1"),
		SubjectModelTrained,
		SubjectModelRetrain,
	} {
		assert.True(t, covered(s), s)
	}
}

func TestStreamMaxAgeParses(t *testing.T) {
	d, err := time.ParseDuration(StreamMaxAge)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)
}

func TestRetrainRequestOptionalFields(t *testing.T) {
	var req RetrainRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.Zero(t, req.Samples)

	require.NoError(t, json.Unmarshal([]byte(`{"samples":500,"seed":7}`), &req))
	assert.Equal(t, 500, req.Samples)
	assert.Equal(t, uint64(7), req.Seed)
}
