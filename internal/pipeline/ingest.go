package pipeline

import (
	"context"
	"os"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
)

// Ingest copies the raw dataset at data.source into the store unchanged.
// The bytes must parse as CSV with a header and at least one row.
func Ingest(ctx context.Context, rc *RunContext) error {
	span := rc.begin(log.StageIngestion)

	src := rc.Params.Data.Source
	raw, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "ingest %s", src)
	}
	frame, err := dataset.ParseCSV(raw)
	if err != nil {
		return errors.Wrapf(err, "ingest %s", src)
	}
	if err := rc.Store.Put(ctx, artifact.Ingested, raw); err != nil {
		return err
	}

	span.done(
		log.ArtifactKey, artifact.Ingested.Path(),
		log.SamplesKey, frame.Len(),
		log.ColumnsKey, frame.Header,
	)
	return nil
}

func loadFrame(ctx context.Context, rc *RunContext) (*dataset.Frame, error) {
	raw, err := rc.Store.Get(ctx, artifact.Ingested)
	if err != nil {
		return nil, err
	}
	frame, err := dataset.ParseCSV(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", artifact.Ingested)
	}
	return frame, nil
}
