package config

const (
	defaultConfigPath          = "~/.config/stemswap/config.toml"
	defaultCatalogBackend      = BackendQdrant
	defaultCatalogURL          = "http://localhost:6334"
	defaultCollection          = "gramosynth_v3x_2"
	defaultVectorName          = "audio"
	defaultBatchSize           = 100
	defaultCatalogTimeout      = 300
	defaultSimilarityThreshold = 0.7
	defaultSelfMatchTolerance  = 1e-8
	defaultMinFoundStems       = 2
	defaultOriginalStemSlots   = 5
	defaultCandidateStemSlots  = 7
	defaultStorageRoot         = "s3://rtsy-gramosynth"
	defaultMatrixPath          = "sheets/matrix.csv"
	defaultOutputDir           = "sheets"
	defaultInterimFile         = "results_.csv"
	defaultFinalFile           = "stem_combinations3.csv"
	defaultMetadataFile        = "track_metadata.csv"
	defaultSource              = "gramosynth"
	defaultLedgerPath          = "~/.local/share/stemswap/runs.db"
	defaultLogDir              = "~/.local/share/stemswap/logs"
	defaultMetricsTextfile     = "~/.local/share/stemswap/metrics/stemswap.prom"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Catalog backends.
const (
	BackendQdrant   = "qdrant"
	BackendWeaviate = "weaviate"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Catalog: Catalog{
			Backend:            defaultCatalogBackend,
			URL:                defaultCatalogURL,
			Collection:         defaultCollection,
			VectorName:         defaultVectorName,
			BatchSize:          defaultBatchSize,
			TimeoutSeconds:     defaultCatalogTimeout,
			InsecureSkipVerify: true,
		},
		Matching: Matching{
			SimilarityThreshold: defaultSimilarityThreshold,
			SelfMatchTolerance:  defaultSelfMatchTolerance,
			MinFoundStems:       defaultMinFoundStems,
			OriginalStemSlots:   defaultOriginalStemSlots,
			CandidateStemSlots:  defaultCandidateStemSlots,
			StorageRoot:         defaultStorageRoot,
			MatrixPath:          defaultMatrixPath,
		},
		Output: Output{
			Dir:           defaultOutputDir,
			InterimFile:   defaultInterimFile,
			FinalFile:     defaultFinalFile,
			MetadataFile:  defaultMetadataFile,
			DefaultSource: defaultSource,
		},
		State: State{
			LedgerPath: defaultLedgerPath,
			LogDir:     defaultLogDir,
		},
		Metrics: Metrics{
			TextfilePath: defaultMetricsTextfile,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
