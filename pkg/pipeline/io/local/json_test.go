package local_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

func TestReadRoster(t *testing.T) {
	t.Run("reads name and link", func(t *testing.T) {
		in := `[{"name": "петров иван иванович", "link": "L1"}, {"name": "Сидоров С. П.", "link": "L2", "extra": 1}]`
		got, err := localio.ReadRoster(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []schema.NameRecord{
			{Name: "петров иван иванович", Link: "L1"},
			{Name: "Сидоров С. П.", Link: "L2"},
		}, got)
	})

	t.Run("object instead of array errors", func(t *testing.T) {
		_, err := localio.ReadRoster(strings.NewReader(`{"name": "x"}`))
		require.Error(t, err)
	})

	t.Run("trailing data errors", func(t *testing.T) {
		_, err := localio.ReadRoster(strings.NewReader(`[] []`))
		require.Error(t, err)
	})
}

func TestReadStringList(t *testing.T) {
	got, err := localio.ReadStringList(strings.NewReader(`["Иван", "Пётр"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Иван", "Пётр"}, got)

	_, err = localio.ReadStringList(strings.NewReader(`[1]`))
	require.Error(t, err)
}

func TestWriteJSONKeepsCyrillicAndAmpersands(t *testing.T) {
	var buf bytes.Buffer
	err := localio.WriteJSON(&buf, []schema.ChangedRecord{{
		OldName: "петров иван иванович",
		NewName: "Петров Иван Иванович",
		Link:    "https://portal.test/author.php?id=1&tab=main",
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"new_name": "Петров Иван Иванович"`)
	assert.Contains(t, out, `id=1&tab=main`)
}

func TestWriteJSONFileRoundTripsChangedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result", schema.ChangedFile)
	want := []schema.ChangedRecord{{OldName: "а", NewName: "Б", Link: "L"}}

	require.NoError(t, localio.WriteJSONFile(path, want))
	got, err := localio.ReadChangedFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteJSONFileWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, localio.WriteJSONFile(path, []schema.ChangedRecord{}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestWriteReviewWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), schema.ReviewFile)
	err := localio.WriteReviewWorkbook(path,
		[]schema.ChangedRecord{{OldName: "петров иван иванович", NewName: "Петров Иван Иванович", Link: "L1"}},
		[]schema.UnchangedRecord{{Name: "А Б", Link: "L3", Error: "No such name/surname in reference data", Reason: "no_match_in_reference_data"}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.Equal(t, []string{"Changed", "Unchanged"}, f.GetSheetList())

	v, err := f.GetCellValue("Changed", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Петров Иван Иванович", v)

	v, err = f.GetCellValue("Unchanged", "B2")
	require.NoError(t, err)
	assert.Equal(t, "no_match_in_reference_data", v)
}
