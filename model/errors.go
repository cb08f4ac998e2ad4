package model

import "errors"

// 预定义错误变量，调用方通过 errors.Is 判断错误种类
var (
	ErrRecipeNotFound            = errors.New("配方不存在")
	ErrHotkeyConflict            = errors.New("快捷键已绑定到其他动作")
	ErrPlatformDenied            = errors.New("系统拒绝访问")
	ErrClipboardUnavailable      = errors.New("剪贴板暂时不可用")
	ErrInvalidTransformParameter = errors.New("转换参数无效")
	ErrConfigCorrupt             = errors.New("配置文件已损坏")
	ErrServiceNotRunning         = errors.New("后台服务未运行")
	ErrUnknownTransform          = errors.New("未知的转换类型")
	ErrInvalidCombination        = errors.New("无效的快捷键组合")
	ErrInvalidText               = errors.New("文本不是有效的 UTF-8")
	ErrTransformFault            = errors.New("转换步骤内部错误")
)
