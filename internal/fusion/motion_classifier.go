// Package fusion 将加速度计原始采样转换为步数、姿态和姿态角
//
// 姿态规则（pitch/roll 单位为度）：
//   - |pitch| < 30 且 |roll| < 30 → Standing or Walking
//   - 否则 |roll| > 60 → Lying Down
//   - 否则 → Sitting
package fusion

import (
	"math"

	"wisefido-guardian/internal/models"
)

const (
	uprightLimitDeg = 30.0
	lyingRollDeg    = 60.0
)

// MotionClassifier 运动分类器（只在 motion consumer 的 goroutine 中使用，不加锁）
type MotionClassifier struct {
	stepThreshold float64
	state         models.MotionState
}

// NewMotionClassifier 创建运动分类器
func NewMotionClassifier(stepThreshold float64) *MotionClassifier {
	return &MotionClassifier{
		stepThreshold: stepThreshold,
		state: models.MotionState{
			Posture: models.PostureUnknown,
		},
	}
}

// Process 处理一次采样，返回更新后的状态副本
// 步数检测：与上一次 z 的差值超过阈值即计一步（无额外去抖）
func (c *MotionClassifier) Process(s models.Sample3D) models.MotionState {
	if c.state.LastZ != nil && math.Abs(s.Z-*c.state.LastZ) > c.stepThreshold {
		c.state.StepCount++
	}
	z := s.Z
	c.state.LastZ = &z

	c.state.PitchDeg = Pitch(s.X, s.Y, s.Z)
	c.state.RollDeg = Roll(s.X, s.Y, s.Z)
	c.state.Posture = ClassifyPosture(c.state.PitchDeg, c.state.RollDeg)
	c.state.Magnitude = Magnitude(s.X, s.Y, s.Z)
	c.state.X, c.state.Y, c.state.Z = s.X, s.Y, s.Z
	c.state.Timestamp = s.Timestamp

	return c.State()
}

// State 当前状态副本
func (c *MotionClassifier) State() models.MotionState {
	st := c.state
	if st.LastZ != nil {
		z := *st.LastZ
		st.LastZ = &z
	}
	return st
}

// SetStepCount 恢复步数（重启后从缓存恢复）
func (c *MotionClassifier) SetStepCount(n int) {
	if n > c.state.StepCount {
		c.state.StepCount = n
	}
}

// Pitch atan2(x, hypot(y, z))，单位度
func Pitch(x, y, z float64) float64 {
	return math.Atan2(x, math.Hypot(y, z)) * 180 / math.Pi
}

// Roll atan2(y, hypot(x, z))，单位度
func Roll(x, y, z float64) float64 {
	return math.Atan2(y, math.Hypot(x, z)) * 180 / math.Pi
}

// Magnitude 三轴合加速度
func Magnitude(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// ClassifyPosture 姿态分类（纯函数）
func ClassifyPosture(pitchDeg, rollDeg float64) models.Posture {
	switch {
	case math.Abs(pitchDeg) < uprightLimitDeg && math.Abs(rollDeg) < uprightLimitDeg:
		return models.PostureStanding
	case math.Abs(rollDeg) > lyingRollDeg:
		return models.PostureLyingDown
	default:
		return models.PostureSitting
	}
}
