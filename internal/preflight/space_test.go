package preflight

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateNeed(t *testing.T) {
	assert.Equal(t, int64(0), EstimateNeed(0, 100))
	assert.Equal(t, int64(10+PartOverhead), EstimateNeed(10, 100))
	assert.Equal(t, int64(250+3*PartOverhead), EstimateNeed(250, 100))
	assert.Equal(t, int64(10+PartOverhead), EstimateNeed(10, 0))
}

func TestCheckSpaceReal(t *testing.T) {
	sp, err := CheckSpace(context.Background(), t.TempDir(), 1)
	require.NoError(t, err)
	assert.Greater(t, sp.Free, uint64(0))
	assert.True(t, sp.Enough())
}

func TestCheckSpaceStubbed(t *testing.T) {
	orig := usage
	defer func() { usage = orig }()

	usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 100}, nil
	}
	sp, err := CheckSpace(context.Background(), "out", 101)
	require.NoError(t, err)
	assert.False(t, sp.Enough())
	assert.Equal(t, "out: free=100 need=101", sp.String())

	usage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}
	_, err = CheckSpace(context.Background(), "out", 1)
	assert.ErrorContains(t, err, "statfs failed")
}

func TestEnoughZeroNeed(t *testing.T) {
	assert.True(t, Space{}.Enough())
}
