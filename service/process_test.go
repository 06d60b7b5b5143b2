package service

// visionProcess is a closed process kind set used across the service tests.
type visionProcess int

const (
	aprilTagFront visionProcess = iota
	aprilTagRear
	objectDetection
	lidarMapping
	poseFusion
)

func (p visionProcess) Weight() float64 {
	switch p {
	case aprilTagFront, aprilTagRear:
		return 2
	case objectDetection:
		return 3
	case lidarMapping:
		return 4
	default:
		return 1
	}
}

func (p visionProcess) String() string {
	switch p {
	case aprilTagFront:
		return "april_tag_front"
	case aprilTagRear:
		return "april_tag_rear"
	case objectDetection:
		return "object_detection"
	case lidarMapping:
		return "lidar_mapping"
	case poseFusion:
		return "pose_fusion"
	default:
		return "unknown"
	}
}
