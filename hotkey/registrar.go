package hotkey

// Handle 已向系统注册的一个组合
type Handle interface {
	// Keydown 每次按下时收到一个信号
	Keydown() <-chan struct{}
	Unregister() error
}

// Registrar 系统全局快捷键的注册边界
type Registrar interface {
	Register(c Combination) (Handle, error)
}
