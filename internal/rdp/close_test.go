package rdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_Close(t *testing.T) {
	client := &Client{
		conn: &closeTestMockConn{},
	}

	err := client.Close()

	assert.NoError(t, err)
}

func TestClient_Close_NilConn(t *testing.T) {
	client := &Client{}

	err := client.Close()

	assert.NoError(t, err)
}

// closeTestMockConn is a mock connection for testing Close
type closeTestMockConn struct {
	mockConn
}
