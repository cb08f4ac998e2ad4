package service

import (
	"context"
	"errors"
	"fmt"

	"cliprecipe/clipboard"
	"cliprecipe/model"
	"cliprecipe/transform"
)

// Clipboard 一次性应用所需的剪贴板能力，clipboard.Watcher 满足该接口
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	WriteBack(ctx context.Context, text string) error
}

// Result 一次应用的结果
type Result struct {
	Input   string `json:"-"`
	Output  string `json:"-"`
	Changed bool   `json:"changed"`
}

// ApplyOnce 读取剪贴板、执行步骤并在结果不同时写回。
// 命令行、面板与快捷键都走这一条路径，后台循环对变化事件使用同一个 transformAndWrite
func ApplyOnce(ctx context.Context, clip Clipboard, steps []model.Transform) (Result, error) {
	text, err := clip.Read(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("读取剪贴板失败: %w", err)
	}
	return transformAndWrite(ctx, clip, text, steps)
}

// transformAndWrite 转换失败时不写回，剪贴板保持原样
func transformAndWrite(ctx context.Context, clip Clipboard, text string, steps []model.Transform) (Result, error) {
	out, err := transform.ApplyPipeline(text, steps)
	res := Result{Input: text, Output: out}
	if err != nil {
		return res, err
	}
	if out == text {
		return res, nil
	}
	if err := clip.WriteBack(ctx, out); err != nil && !errors.Is(err, clipboard.ErrWritePending) {
		return res, err
	}
	// 写入超时但仍在进行时按已写入处理，自身写入指纹保持有效
	res.Changed = true
	return res, nil
}
