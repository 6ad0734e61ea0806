package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBatch(t *testing.T) {
	RecordBatch("test_record", StatusSuccess, 100, 0.5)
	RecordBatch("test_record", StatusFailed, 100, 0.1)

	assert.InDelta(t, 1.0, testutil.ToFloat64(BatchesTotal.WithLabelValues("test_record", StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(BatchesTotal.WithLabelValues("test_record", StatusFailed)), 0)
	// failed batches do not count their events
	assert.InDelta(t, 100.0, testutil.ToFloat64(EventsTotal.WithLabelValues("test_record")), 0)
}

func TestRecordFile(t *testing.T) {
	RecordFileStart("test_file")
	RecordFileStart("test_file")
	RecordFileDone("test_file")
	assert.InDelta(t, 1.0, testutil.ToFloat64(FilesRunning.WithLabelValues("test_file")), 0)

	RecordFill("test_file", "JESUp")
	assert.InDelta(t, 1.0, testutil.ToFloat64(FillsTotal.WithLabelValues("test_file", "JESUp")), 0)
}
