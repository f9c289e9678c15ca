package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievedContext_MetadataAccessors(t *testing.T) {
	c := RetrievedContext{
		Metadata: map[string]any{
			"resource_id": json.Number("42"),
			"url":         "https://youtu.be/dQw4w9WgXcQ",
			"timestamp":   12.5,
			"hash":        "abc",
		},
	}

	assert.Equal(t, "42", c.ResourceID())
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", c.URL())
	assert.Equal(t, "12.5", c.Timestamp())
	assert.Equal(t, "abc", c.Hash())

	empty := RetrievedContext{}
	assert.Equal(t, "", empty.ResourceID())
	assert.Equal(t, "", empty.Timestamp())
}
