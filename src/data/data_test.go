package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureParam(t *testing.T) {
	assert.Equal(t, "u:p@tcp(h)/db?parseTime=true", ensureParam("u:p@tcp(h)/db", "parseTime", "true"))
	assert.Equal(t, "u:p@tcp(h)/db?x=1&parseTime=true", ensureParam("u:p@tcp(h)/db?x=1", "parseTime", "true"))
	assert.Equal(t, "u:p@tcp(h)/db?parseTime=false", ensureParam("u:p@tcp(h)/db?parseTime=false", "parseTime", "true"))
}
