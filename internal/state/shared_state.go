// Package state 提供进程内共享黑板（SharedState）
//
// 生命周期：启动时由 service 创建，所有 consumer 通过指针共享，关闭时调用 Stop。
// 并发规则：每个字段只有一个写入方（单写多读），所有访问都在锁内完成，
// 锁只在一次读或写期间持有，绝不跨越阻塞调用。
//
// 字段归属：
//   - motion:          motion consumer（MotionClassifier + 静止检测）
//   - presence:        presence consumer（PresenceMonitor）
//   - checkin:         check-in consumer（CheckinScheduler）
//   - lastInteraction: interaction loop
//   - climate:         interaction loop（空闲屏刷新时读取温湿度）
//   - running:         service（Stop 可由任意组件调用，只会从 true 变为 false）
package state

import (
	"sync"
	"time"

	"wisefido-guardian/internal/models"
)

// SharedState 共享黑板
type SharedState struct {
	mu sync.Mutex

	deviceID        string
	running         bool
	motion          models.MotionSnapshot
	presence        models.PresenceSnapshot
	checkin         models.CheckinSnapshot
	climate         models.Climate
	lastInteraction time.Time
}

// NewSharedState 创建共享黑板（running = true）
func NewSharedState(deviceID string) *SharedState {
	return &SharedState{
		deviceID: deviceID,
		running:  true,
		motion: models.MotionSnapshot{
			Posture: models.PostureUnknown,
		},
	}
}

// Running 各轮询循环在每次迭代开始时检查
func (s *SharedState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop 设置 running = false，所有循环在一个轮询周期内退出
func (s *SharedState) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// PublishMotion 写入运动快照
func (s *SharedState) PublishMotion(m models.MotionSnapshot) {
	s.mu.Lock()
	s.motion = m
	s.mu.Unlock()
}

// PublishPresence 写入在场快照
func (s *SharedState) PublishPresence(p models.PresenceSnapshot) {
	s.mu.Lock()
	s.presence = p
	s.mu.Unlock()
}

// PublishCheckin 写入签到快照
func (s *SharedState) PublishCheckin(c models.CheckinSnapshot) {
	s.mu.Lock()
	s.checkin = c
	s.mu.Unlock()
}

// PublishClimate 写入温湿度
func (s *SharedState) PublishClimate(c models.Climate) {
	s.mu.Lock()
	s.climate = c
	s.mu.Unlock()
}

// RecordInteraction 记录最近一次用户按键时间
func (s *SharedState) RecordInteraction(t time.Time) {
	s.mu.Lock()
	if t.After(s.lastInteraction) {
		s.lastInteraction = t
	}
	s.mu.Unlock()
}

// LastInteraction 最近一次用户按键时间（零值表示从未按键）
func (s *SharedState) LastInteraction() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInteraction
}

// Motion 读取运动快照
func (s *SharedState) Motion() models.MotionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motion
}

// Presence 读取在场快照
func (s *SharedState) Presence() models.PresenceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPresence(s.presence)
}

// Checkin 读取签到快照
func (s *SharedState) Checkin() models.CheckinSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkin
}

// Steps 当前累计步数
func (s *SharedState) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motion.Steps
}

// Snapshot 一次加锁读取全部字段，保证视图一致
func (s *SharedState) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Snapshot{
		DeviceID:            s.deviceID,
		Motion:              s.motion,
		Presence:            copyPresence(s.presence),
		Checkin:             s.checkin,
		Climate:             s.climate,
		LastUserInteraction: s.lastInteraction,
		Timestamp:           time.Now().Unix(),
	}
}

// copyPresence 复制距离指针，调用方不能通过快照修改黑板
func copyPresence(p models.PresenceSnapshot) models.PresenceSnapshot {
	if p.DistanceCM != nil {
		d := *p.DistanceCM
		p.DistanceCM = &d
	}
	return p
}
