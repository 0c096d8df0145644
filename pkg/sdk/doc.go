/*
Package sdk provides the TinyChart client library for feeding a data source
server from Go programs.

# Quick Start

	client, err := sdk.New(sdk.ClientConfig{
	    Endpoint: "http://localhost:8080",
	    Dataset:  "default",
	})
	if err != nil {
	    log.Fatal(err)
	}

	client.Start(context.Background())
	defer client.Stop()

	client.Record(series.Sample{Timestamp: "2024-01-01", Value: 42})

Samples are buffered and posted to /v1/datasets/{name}/samples in the order
they were recorded, either when a batch fills up or on every flush interval.
Stop flushes whatever is still queued.

The widget renders samples in stored order, so callers should record them in
chronological order.
*/
package sdk
