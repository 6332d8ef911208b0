package pagemanager

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPageSize = 32

func TestNewPageIsZeroed(t *testing.T) {
	page := NewPage(testPageSize)
	require.Len(t, page.Read(), testPageSize)
	require.True(t, bytes.Equal(page.Read(), make([]byte, testPageSize)))
}

func TestPageFromBytes(t *testing.T) {
	data := bytes.Repeat([]byte{1}, testPageSize)
	page := PageFromBytes(data, testPageSize)
	require.Equal(t, data, page.Read())
}

func TestPageFromBytesWrongSizePanics(t *testing.T) {
	require.Panics(t, func() {
		PageFromBytes(make([]byte, testPageSize*2), testPageSize)
	})
	require.Panics(t, func() {
		PageFromBytes(make([]byte, testPageSize-1), testPageSize)
	})
}

func TestPageMutate(t *testing.T) {
	page := NewPage(testPageSize)
	buf := page.Mutate()
	for i := range buf {
		buf[i] = 2
	}
	require.Equal(t, bytes.Repeat([]byte{2}, testPageSize), page.Read())
	require.Equal(t, testPageSize, page.Size())
}
