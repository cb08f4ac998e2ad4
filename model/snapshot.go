package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint 剪贴板内容哈希
type Fingerprint string

// FingerprintOf 计算文本指纹
func FingerprintOf(text string) Fingerprint {
	sum := sha256.Sum256([]byte(text))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// ClipboardSnapshot 一次观察到的剪贴板内容
type ClipboardSnapshot struct {
	Content     string      `json:"content"`
	Fingerprint Fingerprint `json:"fingerprint"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// NewSnapshot 创建快照
func NewSnapshot(content string, at time.Time) ClipboardSnapshot {
	return ClipboardSnapshot{
		Content:     content,
		Fingerprint: FingerprintOf(content),
		CapturedAt:  at,
	}
}
