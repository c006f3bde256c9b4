// Standard attribute keys for pipeline and inference logging.
//
// Keys follow a hierarchical naming convention (e.g. "pipeline.stage",
// "data.samples") so that log output can be filtered per stage or per run.

package log

// Run and stage context.
const (
	// RunIDKey identifies one pipeline run (a UUID minted at process start).
	RunIDKey = "run.id"

	// StageKey names the pipeline stage emitting the record.
	// Standard values: the Stage* constants below.
	StageKey = "pipeline.stage"

	// ComponentKey identifies which component or package is logging.
	// Examples: "pipeline", "predict", "server", "ensemble"
	ComponentKey = "ml.component"

	// ArtifactKey is the store path of the artifact being read or written,
	// e.g. "transformation/X_train.csv".
	ArtifactKey = "artifact.key"
)

// Model and operation context.
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "GradientBoostingClassifier", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names, e.g. the missing columns of a failed validation.
	ColumnsKey = "data.columns"
)

// Performance and scores.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy, range [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// LossKey records the training loss (binomial deviance).
	LossKey = "metrics.loss"

	// IterationKey records the boosting iteration.
	IterationKey = "training.iteration"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// StacktraceKey contains stack trace information for debugging.
	// Populated automatically when an error is logged.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	StageIngestion      = "ingestion"
	StageValidation     = "validation"
	StageTransformation = "transformation"
	StageTraining       = "training"
	StageEvaluation     = "evaluation"

	ErrorNotTrained      = "NOT_TRAINED"
	ErrorInvalidInput    = "INVALID_INPUT"
	ErrorValidation      = "VALIDATION_FAILED"
	ErrorArtifactMissing = "ARTIFACT_MISSING"
)
