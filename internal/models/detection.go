package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every level in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Weight is the risk-scoring weight of the level.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 7
	case SeverityCritical:
		return 15
	default:
		return 0
	}
}

// IsWarning reports whether detections of this level are tracked as warnings.
func (s Severity) IsWarning() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

type DetectionKind string

const (
	KindFaceAbsence             DetectionKind = "face_absence"
	KindMultipleFaces           DetectionKind = "multiple_faces"
	KindSignificantMovement     DetectionKind = "significant_movement"
	KindObjectDetected          DetectionKind = "object_detected"
	KindMultiplePersonsDetected DetectionKind = "multiple_persons_detected"
	KindGazeDeviation           DetectionKind = "gaze_deviation"
	KindExcessiveMovement       DetectionKind = "excessive_movement"
)

// DetectionKinds is the closed set of kinds emitted by the detector bank.
var DetectionKinds = []DetectionKind{
	KindFaceAbsence,
	KindMultipleFaces,
	KindSignificantMovement,
	KindObjectDetected,
	KindMultiplePersonsDetected,
	KindGazeDeviation,
	KindExcessiveMovement,
}

// Detection is a single finding from one detector on one frame.
type Detection struct {
	Timestamp   time.Time
	Kind        DetectionKind
	ObjectClass string // set for KindObjectDetected only
	Severity    Severity
	Confidence  float64
	Message     string
	Details     map[string]interface{}
	Screenshot  *string
}

// Type is the wire name of the detection, e.g. "object_detection_cell_phone".
func (d Detection) Type() string {
	if d.Kind == KindObjectDetected {
		return "object_detection_" + strings.ReplaceAll(d.ObjectClass, " ", "_")
	}
	return string(d.Kind)
}

func (d Detection) IsWarning() bool {
	return d.Severity.IsWarning()
}

type detectionJSON struct {
	Timestamp  float64                `json:"timestamp"`
	Type       string                 `json:"type"`
	AlertLevel Severity               `json:"alert_level"`
	Confidence float64                `json:"confidence"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details"`
	Screenshot *string                `json:"screenshot,omitempty"`
}

func (d Detection) MarshalJSON() ([]byte, error) {
	details := d.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	return json.Marshal(detectionJSON{
		Timestamp:  float64(d.Timestamp.UnixNano()) / 1e9,
		Type:       d.Type(),
		AlertLevel: d.Severity,
		Confidence: d.Confidence,
		Message:    d.Message,
		Details:    details,
		Screenshot: d.Screenshot,
	})
}

func (d *Detection) UnmarshalJSON(data []byte) error {
	var raw detectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sec := int64(raw.Timestamp)
	nsec := int64((raw.Timestamp - float64(sec)) * 1e9)
	d.Timestamp = time.Unix(sec, nsec)
	d.Severity = raw.AlertLevel
	d.Confidence = raw.Confidence
	d.Message = raw.Message
	d.Details = raw.Details
	d.Screenshot = raw.Screenshot

	if class, ok := strings.CutPrefix(raw.Type, "object_detection_"); ok {
		d.Kind = KindObjectDetected
		d.ObjectClass = strings.ReplaceAll(class, "_", " ")
	} else {
		d.Kind = DetectionKind(raw.Type)
	}
	return nil
}

// Warning is the compact record kept for high and critical detections.
type Warning struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	Screenshot *string   `json:"screenshot,omitempty"`
}

func NewWarning(d Detection) Warning {
	return Warning{
		Timestamp:  d.Timestamp,
		Type:       d.Type(),
		Message:    d.Message,
		Severity:   d.Severity,
		Screenshot: d.Screenshot,
	}
}
