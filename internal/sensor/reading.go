package sensor

// Reading is one raw acquisition: knee angle from the encoder and the two
// axial load-cell samples, stamped with the loop time in seconds.
type Reading struct {
	Time      float64
	Angle     float64
	LoadCell1 float64
	LoadCell2 float64
}
