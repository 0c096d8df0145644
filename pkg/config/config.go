package config

import "time"

// Data source server defaults
const (
	DefaultPort         = "8080"
	DefaultDataDir      = "./data/tinychart"
	DefaultMaxStorageGB = 1
	DefaultMaxMemoryMB  = 48
	DefaultDataset      = "default"
)

// Widget host defaults
const (
	DefaultWidgetAddr   = ":8081"
	DefaultSourceURL    = "http://localhost:8080/data.json"
	DefaultWebDir       = "./web"
	FetchTimeout        = 10 * time.Second
	RenderTimeout       = 15 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ShutdownTimeout     = 30 * time.Second
	BackgroundStopGrace = 5 * time.Second
)

// Chart geometry and colors
const (
	ChartWidth  = 800
	ChartHeight = 400
	LineColor   = "ff7300"
	GridColor   = "f5f5f5"
	MaxXTicks   = 10
)

// Export defaults
const (
	ExportFilename = "chart.png"
)

// Ingest limits
const (
	MaxSamplesPerRequest = 10000
	MaxTimestampLength   = 64
	MaxDatasetNameLength = 128
	IngestTimeout        = 5 * time.Second
	QueryTimeout         = 10 * time.Second
	StatsTimeout         = 5 * time.Second
)

// Background tasks
const (
	BadgerGCInterval = 10 * time.Minute
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
	WSMaxMessageSize  = 4096
)
