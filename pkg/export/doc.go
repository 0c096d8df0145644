// Package export turns rendered charts into downloadable images and series
// into portable data files.
//
// # Chart Export
//
// A Handle is an explicit capture handle on one rendered chart. Exporter.Export
// captures the raster behind the handle, encodes it as PNG and releases the
// handle whether or not the export succeeded. A released handle refuses further
// captures with ErrHandleReleased.
//
//	h := export.NewHandle(chart)
//	path, err := export.NewExporter().SaveFile(ctx, h, ".")
//	// path == "./chart.png"
//
// Every failure is reported as *ExportError, naming the step that failed:
//
//	var exportErr *export.ExportError
//	if errors.As(err, &exportErr) {
//	    log.Printf("export failed during %s: %v", exportErr.Op, exportErr.Err)
//	}
//
// # Series Export
//
// WriteJSON and WriteCSV write a sequence of samples in order:
//
//	{
//	  "metadata": {
//	    "exported_at": "2024-02-01T10:00:00Z",
//	    "timeframe": "weekly",
//	    "sample_count": 2,
//	    "format": "json",
//	    "version": "1.0"
//	  },
//	  "samples": [
//	    {"timestamp": "2024-01-01", "value": 4},
//	    {"timestamp": "2024-01-08", "value": 8}
//	  ]
//	}
//
// CSV output is a "timestamp,value" header followed by one row per sample.
//
// # Dataset Backup
//
// On the data source, Handler serves the same JSON document as a dataset
// backup and restores it:
//
//	curl "http://localhost:8080/v1/datasets/default/export?format=json" -o backup.json
//	curl -X POST "http://localhost:8080/v1/datasets/restored/import" \
//	  -H "Content-Type: application/json" -d @backup.json
//
// Imports validate each sample and skip invalid ones, listing them in
// ImportResult.Errors. Samples are written in batches of MaxImportBatchSize.
package export
