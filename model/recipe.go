package model

import "time"

// Transform 一个转换步骤：转换类型 + 可选参数
type Transform struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Step 创建转换步骤，kv 为交替出现的键值对
func Step(kind string, kv ...string) Transform {
	t := Transform{Kind: kind}
	if len(kv) > 1 {
		t.Params = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			t.Params[kv[i]] = kv[i+1]
		}
	}
	return t
}

// Recipe 一组有序的转换步骤
type Recipe struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Steps       []Transform `json:"steps" yaml:"steps"`
	Hotkey      string      `json:"hotkey,omitempty" yaml:"hotkey,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	ModifiedAt  time.Time   `json:"modified_at" yaml:"modified_at"`
}

// Clone 深拷贝配方，避免调用方修改存储内的步骤
func (r Recipe) Clone() Recipe {
	out := r
	out.Steps = make([]Transform, len(r.Steps))
	for i, s := range r.Steps {
		out.Steps[i] = Transform{Kind: s.Kind}
		if s.Params != nil {
			out.Steps[i].Params = make(map[string]string, len(s.Params))
			for k, v := range s.Params {
				out.Steps[i].Params[k] = v
			}
		}
	}
	return out
}

// CloneSteps 拷贝步骤列表
func CloneSteps(steps []Transform) []Transform {
	return Recipe{Steps: steps}.Clone().Steps
}
