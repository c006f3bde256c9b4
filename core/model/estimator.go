// Package model defines the estimator contracts shared by heartml's
// preprocessing steps and classifiers, plus fitted-state tracking and gob
// persistence.
package model

import "gonum.org/v1/gonum/mat"

// Estimator は学習状態を持つすべてのモデルの共通インターフェース
type Estimator interface {
	// IsFitted はFitが完了しているかを返す
	IsFitted() bool
}

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is a fitted binary classifier. PredictProba returns an n x 2
// matrix whose columns are P(class 0) and P(class 1).
type Classifier interface {
	Estimator
	Fitter
	Predictor
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	// Score returns the accuracy of Predict(X) against y.
	Score(X, y mat.Matrix) (float64, error)
}

// FeatureImportancer is implemented by models that can rank their inputs.
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}
