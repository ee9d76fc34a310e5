package common

import "fmt"

// Sample 是引擎处理的基本单元：某个信号在某一时刻的观测值
type Sample struct {
	Series string
	Time   float64
	Value  float64
}

// String 方便调试打印
func (s *Sample) String() string {
	return fmt.Sprintf("Sample{%s @ %g = %g}", s.Series, s.Time, s.Value)
}
