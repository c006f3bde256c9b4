package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FeatureNamer is implemented by fitted transformers and models that remember
// the column names they were fitted on.
type FeatureNamer interface {
	// FeatureNamesIn returns the input column names in fit order.
	FeatureNamesIn() []string
	// GetFeatureNamesOut returns the names of the produced columns.
	GetFeatureNamesOut() []string
}
