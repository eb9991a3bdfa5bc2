package stream

import (
	"fmt"
	"strings"
)

const (
	SubjectWave    = "ecg.wave"
	SubjectPMD     = "ecg.pmd"
	SubjectParams  = "ecg.params"
	SubjectBeats   = "ecg.beats"
	SubjectBurden  = "ecg.burden"
	SubjectControl = "ecg.control"
)

// WaveTopicFilter matches the wave topic of every device.
const WaveTopicFilter = "medical/ecg/+/wave"

// WaveTopic is the MQTT topic a device publishes wave frames on.
func WaveTopic(device string) string {
	return fmt.Sprintf("medical/ecg/%s/wave", device)
}

// DeviceFromTopic returns the device segment of a wave topic, or "" when
// topic does not have the wave topic shape.
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "medical" || parts[1] != "ecg" || parts[3] != "wave" {
		return ""
	}
	return parts[2]
}
