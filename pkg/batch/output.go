package batch

import (
	"fmt"
	"path/filepath"

	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

// OutputPaths lists the files WriteOutputs produced.
type OutputPaths struct {
	Changed   string
	Unchanged string
	Correct   string
	Review    string
}

// WriteOutputs persists the partitions into dir. Every file is written whole;
// there is no streaming or appending.
func WriteOutputs(dir string, res Result, opts Options) (OutputPaths, error) {
	paths := OutputPaths{
		Changed:   filepath.Join(dir, schema.ChangedFile),
		Unchanged: filepath.Join(dir, schema.UnchangedFile),
	}
	if err := localio.WriteJSONFile(paths.Changed, res.Changed); err != nil {
		return paths, fmt.Errorf("write changed records: %w", err)
	}
	if err := localio.WriteJSONFile(paths.Unchanged, res.Unchanged); err != nil {
		return paths, fmt.Errorf("write unchanged records: %w", err)
	}
	if opts.NoOpPolicy == RecordNoOps {
		paths.Correct = filepath.Join(dir, schema.CorrectFile)
		if err := localio.WriteJSONFile(paths.Correct, res.Correct); err != nil {
			return paths, fmt.Errorf("write correct records: %w", err)
		}
	}
	if opts.ReviewWorkbook {
		paths.Review = filepath.Join(dir, schema.ReviewFile)
		if err := localio.WriteReviewWorkbook(paths.Review, res.Changed, res.Unchanged); err != nil {
			return paths, fmt.Errorf("write review workbook: %w", err)
		}
	}
	return paths, nil
}
