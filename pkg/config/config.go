package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	Workbook           string // path to the timing workbook (sqlite file)
	DataDir            string // directory containing raw telemetry and artifacts
	CatalogFile        string // optional yaml file overriding the built-in race catalog
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogConfig          string // path to log config file (zapfilter rules)
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry
	ProfilingPort      int    // port for profiling
	ChunkSize          int    // rows per chunk when aggregating raw telemetry
	UseAggregated      bool   // prefer the aggregated artifact over raw telemetry
	WatchInput         bool   // re-run aggregation when raw input files change
	ReportDir          string // directory receiving generated reports

)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintSamples bool // if true, parsed samples are printed on debug level
}
