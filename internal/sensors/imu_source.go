// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// GyroReader provides the gait reference sensor's angular velocity in deg/s.
type GyroReader interface {
	ReadGyro() ([3]float64, error)
}

// gyroSensitivity is LSB per deg/s for each GYRO_FS_SEL setting.
var gyroSensitivity = [4]float64{131.0, 65.5, 32.8, 16.4}

var gyroFullScale = [4]int{250, 500, 1000, 2000}

// CountsToDegPerSec converts raw gyro counts at the given range setting.
func CountsToDegPerSec(counts int16, gyroRange byte) (float64, error) {
	if int(gyroRange) >= len(gyroSensitivity) {
		return 0, fmt.Errorf("gyro range %d out of 0-3", gyroRange)
	}
	return float64(counts) / gyroSensitivity[gyroRange], nil
}

type imuSource struct {
	name      string
	imu       *mpu9250.MPU9250
	gyroRange byte
}

// NewGyroSource initializes an MPU9250 over SPI as the gait gyro.
func NewGyroSource(name, spiDev, csPin string, gyroRange byte) (GyroReader, error) {
	if int(gyroRange) >= len(gyroSensitivity) {
		return nil, fmt.Errorf("%s IMU: gyro range %d out of 0-3", name, gyroRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w", name, spiDev, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	if err := imu.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set gyro range: %w", name, err)
	}
	log.Printf("%s IMU: gyroscope range set to %d (±%d°/s)", name, gyroRange, gyroFullScale[gyroRange])

	// Bias calibration needs the sensor still; a failure only degrades accuracy.
	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: %s IMU calibration failed: %v", name, err)
	} else {
		log.Printf("%s IMU calibration complete", name)
	}

	return &imuSource{name: name, imu: imu, gyroRange: gyroRange}, nil
}

// ReadGyro reads the three gyroscope axes and converts them to deg/s.
func (s *imuSource) ReadGyro() ([3]float64, error) {
	var out [3]float64
	reads := [3]func() (int16, error){s.imu.GetRotationX, s.imu.GetRotationY, s.imu.GetRotationZ}
	for i, read := range reads {
		raw, err := read()
		if err != nil {
			return out, fmt.Errorf("%s IMU gyro %c: %w", s.name, 'X'+rune(i), err)
		}
		out[i], _ = CountsToDegPerSec(raw, s.gyroRange)
	}
	return out, nil
}
