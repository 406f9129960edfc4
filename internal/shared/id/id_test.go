package id

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()

	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestNewDescriptorID(t *testing.T) {
	d := NewDescriptorID()

	require.True(t, strings.HasPrefix(d.String(), DescriptorPrefix+"_"))
	parts := strings.SplitN(d.String(), "_", 2)
	assert.True(t, IsValid(parts[1]))
}

func TestGeneratorWithEntropy(t *testing.T) {
	gen := NewGeneratorWithEntropy(bytes.NewReader(bytes.Repeat([]byte{0x42}, 64)))

	id := gen.Generate()
	assert.Len(t, id.String(), 26)
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	raw := NewGenerator().Generate().String()
	after := time.Now()

	ts, err := Timestamp(raw)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts.UnixMilli(), before.UnixMilli())
	assert.LessOrEqual(t, ts.UnixMilli(), after.UnixMilli())

	_, err = Timestamp("not-a-ulid")
	assert.Error(t, err)
}
