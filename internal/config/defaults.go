package config

const (
	defaultCorpusDir              = "~/.local/share/ieprep/corpora"
	defaultLogDir                 = "~/.local/share/ieprep/logs"
	defaultWorkers                = 1
	defaultBatchSize              = 200
	defaultMaxConsecutiveFailures = 0
	defaultTaggerBackend          = TaggerBuiltin
	defaultTaggerTimeout          = 120
	defaultStatisticalNERTimeout  = 300
	defaultSegmentationMode       = SegmentationSyntactic
	defaultContextDistance        = 5
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"

	customKindsEnv = "IEPREP_CUSTOM_ENTITY_KINDS"
)

// Tagger backends.
const (
	TaggerBuiltin = "builtin"
	TaggerCommand = "command"
)

// Segmentation modes.
const (
	SegmentationSyntactic  = "syntactic"
	SegmentationContextual = "contextual"
)

var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "vs", "etc",
	"inc", "ltd", "co", "corp", "jan", "feb", "mar", "apr", "jun",
	"jul", "aug", "sep", "sept", "oct", "nov", "dec", "e.g", "i.e",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CorpusDir: defaultCorpusDir,
			LogDir:    defaultLogDir,
		},
		Pipeline: Pipeline{
			Workers:                defaultWorkers,
			BatchSize:              defaultBatchSize,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
		},
		Tokenizer: Tokenizer{
			Abbreviations: append([]string(nil), defaultAbbreviations...),
		},
		Tagger: Tagger{
			Backend:        defaultTaggerBackend,
			TimeoutSeconds: defaultTaggerTimeout,
		},
		StatisticalNER: StatisticalNER{
			TimeoutSeconds: defaultStatisticalNERTimeout,
		},
		Segmentation: Segmentation{
			Mode:            defaultSegmentationMode,
			ContextDistance: defaultContextDistance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
