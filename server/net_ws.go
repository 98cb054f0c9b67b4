package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
)

// 心跳参数：服务端每 pingPeriod 发一次 ping，pongWait 内收不到任何数据或 pong 则断开
var (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装，实现 world.Sender
type ClientConn struct {
	ws *websocket.Conn

	mu     deadlock.Mutex
	send   chan []byte
	closed bool

	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	return &ClientConn{
		ws:         ws,
		send:       make(chan []byte, queue),
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满或已关闭则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃消息（防止阻塞 Tick）
	}
}

// Close 关闭发送队列与底层连接，可重复调用
func (c *ClientConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	_ = c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出二进制帧，并定时发送 ping 维持空闲连接
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端二进制帧，同步交给关卡管理器处理
func (c *ClientConn) readPump(m *LevelManager, id uint32) {
	defer c.Close()
	// 读泵退出时，玩家离开所在关卡
	defer m.Disconnect(id)
	c.ws.SetReadLimit(1 << 10)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		msgType, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		if msgType != websocket.BinaryMessage {
			continue
		}
		m.HandleMessage(id, payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：连接即加入默认关卡
func (m *LevelManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClientConn(ws, m.cfg.SendQueue)
	o, err := m.Connect(client)
	if err != nil {
		m.log.Errorw("connect failed", "remote", r.RemoteAddr, "err", err)
		client.Close()
		return
	}

	go client.writePump()
	go client.readPump(m, o.ID())
}
