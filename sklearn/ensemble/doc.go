// Package ensemble provides a pure Go gradient-boosted decision tree
// classifier with a scikit-learn style API.
//
// GradientBoostingClassifier follows scikit-learn's defaults: 100 regression
// trees of depth 3 fitted to the binomial deviance gradient, learning rate
// 0.1, a log-odds prior as the initial score and one Newton step per leaf.
// Training is fully deterministic; equal inputs always produce equal trees.
//
// # Basic Usage
//
//	clf := ensemble.NewGradientBoostingClassifier().
//	    WithNEstimators(100).
//	    WithLearningRate(0.1)
//	clf.SetFeatureNames(names)
//	if err := clf.Fit(XTrain, yTrain); err != nil {
//	    return err
//	}
//	acc, err := clf.Score(XTest, yTest)
//
// # Persistence
//
// The fitted classifier is a plain struct with exported fields and round-trips
// through model.SaveModelToWriter / model.LoadModelFromReader (encoding/gob).
package ensemble
