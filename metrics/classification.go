// Package metrics provides binary classification metrics over gonum vectors.
package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEpsilon clips probabilities away from 0 and 1 before taking logs.
const logLossEpsilon = 1e-15

// checkPair は2つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return 0, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return yTrue.Len(), nil
}

// checkBinary は正解ラベルが0または1のみであることを検証する
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// Accuracy は正解率（予測が正解と一致する割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix counts binary outcomes with 1 as the positive class.
type ConfusionMatrix struct {
	TN int `yaml:"tn" json:"tn"`
	FP int `yaml:"fp" json:"fp"`
	FN int `yaml:"fn" json:"fn"`
	TP int `yaml:"tp" json:"tp"`
}

// BinaryConfusionMatrix は2値分類の混同行列を計算する
func BinaryConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := checkPair("BinaryConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	if err := checkBinary("BinaryConfusionMatrix", yTrue); err != nil {
		return cm, err
	}
	if err := checkBinary("BinaryConfusionMatrix", yPred); err != nil {
		return cm, err
	}
	for i := 0; i < n; i++ {
		switch {
		case yTrue.AtVec(i) == 1 && yPred.AtVec(i) == 1:
			cm.TP++
		case yTrue.AtVec(i) == 1:
			cm.FN++
		case yPred.AtVec(i) == 1:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Precision returns TP / (TP + FP), or 0 when nothing was predicted positive.
func (cm ConfusionMatrix) Precision() float64 {
	return ratio(cm.TP, cm.TP+cm.FP)
}

// Recall returns TP / (TP + FN), or 0 when there are no positives.
func (cm ConfusionMatrix) Recall() float64 {
	return ratio(cm.TP, cm.TP+cm.FN)
}

// F1 returns the harmonic mean of precision and recall, or 0 when both are 0.
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Precision は適合率を計算する（正例予測がない場合は0）
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Precision(), nil
}

// Recall は再現率を計算する（正例がない場合は0）
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Recall(), nil
}

// F1Score はF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1(), nil
}

// BinaryLogLoss は2値分類の対数損失を計算する
// yPred は正例の確率で、log(0) を避けるため [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), logLossEpsilon), 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// AUC はROC曲線下面積を計算する
// 同順位のスコアは平均順位で扱う（Mann-Whitney U統計量）。
// 正例または負例しか存在しない場合は未定義のため0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	var nPos, nNeg int
	rankSumPos := 0.0
	for start := 0; start < n; {
		end := start + 1
		for end < n && yScore.AtVec(idx[end]) == yScore.AtVec(idx[start]) {
			end++
		}
		// ranks are 1-based; tied block shares the average rank
		avgRank := float64(start+end+1) / 2
		for _, i := range idx[start:end] {
			if yTrue.AtVec(i) == 1 {
				nPos++
				rankSumPos += avgRank
			} else {
				nNeg++
			}
		}
		start = end
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, err := FirstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	s, err := FirstColumn("AUCMatrix", yScore)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

// FirstColumn copies the first column of m into a vector.
func FirstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}
