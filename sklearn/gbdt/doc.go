// Package gbdt implements gradient boosted regression trees.
//
// Trees are grown depth-wise with exact greedy split finding over sorted
// feature values. Training is fully deterministic: there is no row or
// column sampling, and ties between equally good splits resolve to the
// lowest feature index and the lowest threshold.
//
// Basic usage:
//
//	reg := gbdt.NewRegressor()
//	if err := reg.Fit(XTrain, yTrain); err != nil {
//		return err
//	}
//	yPred, err := reg.Predict(XTest)
package gbdt
