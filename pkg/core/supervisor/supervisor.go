package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/LENAX/searchd-sidecar/pkg/ipc"
)

// HandlerFunc 子执行体内可被远程调用的一条方法（对外导出）
// 一次性调用，不回传返回值
type HandlerFunc func(args []any)

// Supervisor 一个受监督子执行体的父侧句柄（对外导出）
// 子执行体运行无限接收循环：从管道重组完整帧，按FIFO到达序
// 经启动时固定的注册表分发远程方法调用。终止信号建模为关闭管道写端，
// 子执行体排空残余消息后在EOF退出。
// worker映射只由父侧的Add/Remove/Start/Stop调用点变更
type Supervisor struct {
	handlers map[string]HandlerFunc // 启动时解析一次，之后只读

	mu      sync.RWMutex
	workers map[string]*Worker

	pipeR    *os.File
	pipeW    *os.File
	framer   *ipc.Framer
	done     chan struct{}
	stopOnce sync.Once
}

// NewSupervisor 创建监督器并启动子执行体（对外导出）
func NewSupervisor(handlers map[string]HandlerFunc) (*Supervisor, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("创建管道失败: %w", err)
	}

	table := make(map[string]HandlerFunc, len(handlers))
	for name, h := range handlers {
		if name == "" || h == nil {
			r.Close()
			w.Close()
			return nil, fmt.Errorf("远程方法注册表含空方法名或空处理函数")
		}
		table[name] = h
	}

	s := &Supervisor{
		handlers: table,
		workers:  make(map[string]*Worker),
		pipeR:    r,
		pipeW:    w,
		framer:   ipc.NewFramer(),
		done:     make(chan struct{}),
	}

	go s.receiveLoop()
	return s, nil
}

// receiveLoop 子执行体的无限接收循环
func (s *Supervisor) receiveLoop() {
	defer close(s.done)
	defer s.pipeR.Close()

	for {
		frames, err := s.framer.Read(s.pipeR)
		for _, frame := range frames {
			s.dispatch(frame)
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				log.Printf("❌ 接收循环读取管道失败: %v", err)
			}
			return
		}
	}
}

// dispatch 解码一帧并做一次性方法分发
// 协议错误（不可解码的负载、未注册的方法）上报日志，永不弄崩接收循环
func (s *Supervisor) dispatch(frame []byte) {
	env, err := ipc.DecodeEnvelope(frame)
	if err != nil {
		log.Printf("❌ 协议错误: 无法解码远程调用负载: %v", err)
		return
	}
	h, ok := s.handlers[env.Method]
	if !ok {
		log.Printf("❌ 协议错误: 未注册的远程方法 %s", env.Method)
		return
	}
	h(env.Args)
}

// Execute 编码[method, args]并写入管道（对外导出）
// 这是父侧与子执行体的唯一通信方式
func (s *Supervisor) Execute(method string, args ...any) error {
	payload, err := ipc.EncodeEnvelope(method, args)
	if err != nil {
		return err
	}
	if _, err := s.pipeW.Write(ipc.Pack(payload)); err != nil {
		return fmt.Errorf("写入管道失败: %w", err)
	}
	return nil
}

// AddWorker 注册Worker（对外导出）
// 重复的worker id立即报错且不改动映射；shouldStart为真时随注册启动
func (s *Supervisor) AddWorker(w *Worker, shouldStart bool) error {
	if w == nil {
		return fmt.Errorf("Worker不能为空")
	}
	if w.ID() == "" {
		return fmt.Errorf("Worker id不能为空")
	}

	s.mu.Lock()
	if _, exists := s.workers[w.ID()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("Worker %s 已注册", w.ID())
	}
	s.workers[w.ID()] = w
	s.mu.Unlock()

	if shouldStart {
		return w.Start()
	}
	return nil
}

// RemoveWorker 注销Worker并停止之（对外导出）
// 未知的worker id立即报错且不改动映射
func (s *Supervisor) RemoveWorker(id string) error {
	s.mu.Lock()
	w, exists := s.workers[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("Worker %s 未注册", id)
	}
	delete(s.workers, id)
	s.mu.Unlock()

	w.Stop()
	return nil
}

// GetWorker 按id查找Worker（对外导出）
func (s *Supervisor) GetWorker(id string) (*Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, exists := s.workers[id]
	if !exists {
		return nil, fmt.Errorf("Worker %s 未注册", id)
	}
	return w, nil
}

// WorkerIDs 当前注册的全部worker id（对外导出）
func (s *Supervisor) WorkerIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.workers))
	for id := range s.workers {
		ids = append(ids, id)
	}
	return ids
}

// StartWorkers 并行启动全部Worker（对外导出）
// 已在运行的Worker为幂等空操作
func (s *Supervisor) StartWorkers() error {
	s.mu.RLock()
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	g := new(errgroup.Group)
	for _, w := range workers {
		g.Go(w.Start)
	}
	return g.Wait()
}

// StopWorkers 向全部Worker发送终止信号（对外导出）
// 已停止的Worker为幂等空操作
func (s *Supervisor) StopWorkers() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.workers {
		w.Stop()
	}
}

// Stop 拆除监督器（对外导出）
// 停止全部Worker，向子执行体发出退出信号（关闭管道写端），
// 等待接收循环排空残余消息后退出，最后释放worker映射
func (s *Supervisor) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.StopWorkers()
		err = s.pipeW.Close()
		<-s.done

		s.mu.Lock()
		s.workers = make(map[string]*Worker)
		s.mu.Unlock()
	})
	return err
}

// Done 子执行体退出通知（对外导出）
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}
