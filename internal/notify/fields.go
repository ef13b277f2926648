package notify

import "wisefido-guardian/internal/models"

// TelemetryFields 从快照生成遥测字段
// 温湿度读数无效时上传 0；距离不可用时省略 distance
func TelemetryFields(snap models.Snapshot, feeling int) Fields {
	f := Fields{
		FieldTemperature: 0,
		FieldHumidity:    0,
		FieldSteps:       float64(snap.Motion.Steps),
		FieldX:           snap.Motion.X,
		FieldY:           snap.Motion.Y,
		FieldZ:           snap.Motion.Z,
		FieldMagnitude:   snap.Motion.Magnitude,
		FieldFeeling:     float64(feeling),
	}
	if snap.Climate.Valid {
		f[FieldTemperature] = snap.Climate.Temperature
		f[FieldHumidity] = snap.Climate.Humidity
	}
	if snap.Presence.DistanceCM != nil {
		f[FieldDistance] = *snap.Presence.DistanceCM
	}
	return f
}
