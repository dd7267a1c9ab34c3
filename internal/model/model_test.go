package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Recording", &Recording{}, "recordings"},
		{"MarkerDefinition", &MarkerDefinition{}, "marker_definitions"},
		{"MarkerSample", &MarkerSample{}, "marker_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_ParentsFirst(t *testing.T) {
	assert.Len(t, DatabaseModels, 3)
	assert.IsType(t, &Recording{}, DatabaseModels[0])
}
