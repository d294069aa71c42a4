package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerName(t *testing.T) {
	assert.Equal(t, "group-abc123", ContainerName("ABC123"))
	// same group always maps to the same container
	assert.Equal(t, ContainerName("g1"), ContainerName("g1"))
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "id-1.png", BlobName("id-1", "png"))
	assert.Equal(t, "id-1", BlobName("id-1", ""))
}
