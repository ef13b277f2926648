package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"wisefido-guardian/internal/models"
)

// SyntheticSource 随机传感器数据
// x, y ∈ [-0.05, 0.2]，z ∈ [-0.05, 1.0]，距离 ∈ [2, 400]cm，温度 20-28°C，湿度 40-60%
type SyntheticSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticSource 创建随机数据源，seed 为 0 时按当前时间取种子
func NewSyntheticSource(seed int64) *SyntheticSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSource{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// ReadMotion 随机三轴加速度
func (s *SyntheticSource) ReadMotion(ctx context.Context) (models.Sample3D, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample3D{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Sample3D{
		X:         s.uniform(-0.05, 0.2),
		Y:         s.uniform(-0.05, 0.2),
		Z:         s.uniform(-0.05, 1.0),
		Timestamp: s.now(),
	}, nil
}

// ReadDistance 随机距离
func (s *SyntheticSource) ReadDistance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uniform(MinDistanceCM, MaxDistanceCM), nil
}

// ReadClimate 随机温湿度（整数，与 DHT11 精度一致）
func (s *SyntheticSource) ReadClimate(ctx context.Context) (models.Climate, error) {
	if err := ctx.Err(); err != nil {
		return models.Climate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Climate{
		Temperature: float64(20 + s.rng.Intn(9)),
		Humidity:    float64(40 + s.rng.Intn(21)),
		Valid:       true,
	}, nil
}

// Close 无资源需要释放
func (s *SyntheticSource) Close() error {
	return nil
}

func (s *SyntheticSource) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
