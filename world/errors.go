package world

import "errors"

var (
	// ErrOutOfBounds 对象放置超出网格范围（放置被拒绝，网格不变）
	ErrOutOfBounds = errors.New("world: box out of grid bounds")
	// ErrUnknownLevel 加入/传送的目标关卡不存在
	ErrUnknownLevel = errors.New("world: unknown level")
	// ErrMalformedMessage 入站帧长度不足或类型未知，丢弃该消息
	ErrMalformedMessage = errors.New("world: malformed message")
	// ErrInvalidTeleportTarget 传送门同时指定了目标关卡和目标点
	ErrInvalidTeleportTarget = errors.New("world: teleport must have at most one target")
)
