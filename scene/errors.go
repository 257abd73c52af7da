package scene

import (
	"errors"
	"fmt"
)

// Stage 标识合成流程中的步骤，用于错误报告与日志。
type Stage string

const (
	StageAudioFetch     Stage = "audio fetch"
	StageBackgroundLoad Stage = "background load"
	StageTextRender     Stage = "text render"
	StageEncode         Stage = "encode"
)

var (
	// ErrDataUnavailable 表示音频无法获取或无法探测时长。
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrAssetMissing 表示背景素材缺失或不可用，只记录警告并改用纯色背景。
	ErrAssetMissing = errors.New("asset missing")
	// ErrEncodeFailure 表示 ffmpeg 编码失败或被取消。
	ErrEncodeFailure = errors.New("encode failure")
)

// StageError 携带失败的步骤，调用方可用 errors.As 取出。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage of a composer error, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
