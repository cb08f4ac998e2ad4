package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"cliprecipe/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	// DefaultClientTimeout 本地命令通道的请求超时
	DefaultClientTimeout = 500 * time.Millisecond
	// clipboardCommandTimeout 需要读写剪贴板的命令超时
	clipboardCommandTimeout = 10 * time.Second
)

// Commander IPC 服务端转发的命令，Controller 满足该接口
type Commander interface {
	Status() Status
	Toggle(ctx context.Context) (bool, error)
	Reload(ctx context.Context) error
	ApplyRecipe(ctx context.Context, id string) (Result, error)
	Transform(ctx context.Context, kind string, params map[string]string) (Result, error)
	Copy(ctx context.Context, text string) error
}

type transformRequest struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

type copyRequest struct {
	Text string `json:"text"`
}

// errorCodes 错误码与哨兵错误的对应关系，客户端据此还原错误
var errorCodes = []struct {
	code string
	err  error
}{
	{"recipe_not_found", model.ErrRecipeNotFound},
	{"hotkey_conflict", model.ErrHotkeyConflict},
	{"platform_denied", model.ErrPlatformDenied},
	{"clipboard_unavailable", model.ErrClipboardUnavailable},
	{"service_not_running", model.ErrServiceNotRunning},
	{"unknown_transform", model.ErrUnknownTransform},
	{"invalid_parameter", model.ErrInvalidTransformParameter},
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Server 仅监听本机地址的命令通道
type Server struct {
	cmd    Commander
	logger *zap.Logger
	router *chi.Mux
}

// NewServer 创建命令通道服务端
func NewServer(cmd Commander, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cmd: cmd, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.cmd.Status())
	})
	r.Post("/toggle", func(w http.ResponseWriter, r *http.Request) {
		enabled, err := s.cmd.Toggle(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
	})
	r.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := s.cmd.Reload(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	})
	r.Post("/apply/{id}", func(w http.ResponseWriter, r *http.Request) {
		res, err := s.cmd.ApplyRecipe(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
	r.Post("/transform", func(w http.ResponseWriter, r *http.Request) {
		var req transformRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "请求格式错误: " + err.Error()})
			return
		}
		res, err := s.cmd.Transform(r.Context(), req.Kind, req.Params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
	r.Post("/copy", func(w http.ResponseWriter, r *http.Request) {
		var req copyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "请求格式错误: " + err.Error()})
			return
		}
		if err := s.cmd.Copy(r.Context(), req.Text); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "copied"})
	})

	s.router = r
	return s
}

// Handler 路由
func (s *Server) Handler() http.Handler { return s.router }

// Serve 在 addr 上监听直到 ctx 取消。地址已被占用说明已有服务实例
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, addr)
		}
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("命令通道已启动", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭命令通道失败: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("命令请求",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			body.Code = c.code
			break
		}
	}
	switch body.Code {
	case "recipe_not_found":
		status = http.StatusNotFound
	case "unknown_transform":
		status = http.StatusBadRequest
	case "service_not_running":
		status = http.StatusServiceUnavailable
	case "clipboard_unavailable", "platform_denied":
		status = http.StatusBadGateway
	}
	writeJSON(w, status, body)
}

// Client 命令通道客户端，供命令行与控制面板使用
type Client struct {
	base string
	http *http.Client
}

// NewClient addr 形如 127.0.0.1:9549
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{},
	}
}

// Close 释放空闲连接
func (c *Client) Close() { c.http.CloseIdleConnections() }

// Ping 服务是否在运行
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// Status 查询服务状态
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// Toggle 翻转自动转换开关
func (c *Client) Toggle(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := c.do(ctx, http.MethodPost, "/toggle", nil, &out)
	return out.Enabled, err
}

// Reload 通知服务重新加载配方
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reload", nil, nil)
}

// ApplyRecipe 让服务对当前剪贴板应用配方
func (c *Client) ApplyRecipe(ctx context.Context, id string) (bool, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, "/apply/"+url.PathEscape(id), nil, &out)
	return out.Changed, err
}

// Transform 让服务对当前剪贴板执行单个转换
func (c *Client) Transform(ctx context.Context, kind string, params map[string]string) (bool, error) {
	var out Result
	err := c.do(ctx, http.MethodPost, "/transform", transformRequest{Kind: kind, Params: params}, &out)
	return out.Changed, err
}

// Copy 由服务把文本写入剪贴板，服务不会把这次写入当作新的变化
func (c *Client) Copy(ctx context.Context, text string) error {
	return c.do(ctx, http.MethodPost, "/copy", copyRequest{Text: text}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	// 读写剪贴板的命令可能要等待系统调用
	timeout := DefaultClientTimeout
	if method == http.MethodPost && path != "/toggle" && path != "/reload" {
		timeout = clipboardCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// 连不上即视为服务未运行；已连上但超时不能当作未运行，否则调用方会在本地再执行一次
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w: %v", model.ErrServiceNotRunning, err)
		}
		return fmt.Errorf("命令请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &body) != nil || body.Error == "" {
			return fmt.Errorf("命令失败: %s", resp.Status)
		}
		for _, ec := range errorCodes {
			if ec.code == body.Code {
				return fmt.Errorf("%w: %s", ec.err, body.Error)
			}
		}
		return errors.New(body.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
