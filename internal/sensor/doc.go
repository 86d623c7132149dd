// Package sensor turns raw acquisition readings into the signals the knee
// controller consumes: a filtered angular velocity from successive angle
// samples and a smoothed motor current from the current-monitor voltage.
package sensor
