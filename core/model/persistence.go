package model

import (
	"encoding/gob"
	"io"

	heartErrors "github.com/YuminosukeSato/heartml/pkg/errors"
)

// SaveModelToWriter はモデルをgob形式でio.Writerに保存する
//
// パラメータ:
//   - model: 保存するモデル（StateManagerを埋め込んだ構造体のポインタ）
//   - w: 保存先のWriter
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.SaveModelToWriter(clf, &buf)
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return heartErrors.Wrapf(err, "failed to encode %T", model)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のモデル（ポインタ）
//   - r: 読み込み元のReader
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return heartErrors.Wrapf(err, "failed to decode %T", model)
	}
	return nil
}
