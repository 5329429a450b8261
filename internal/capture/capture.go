// SPDX-License-Identifier: MIT
/*
Package capture owns the PortAudio input path: device enumeration and a
capture engine whose stream callback feeds the shared sample ring.

Thread Safety:
- Atomic recording flag checked inside the callback
- Pre-allocated buffers, no allocation in the stream hot path
- OS thread locked during callback processing
*/
package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"pulseviz/internal/config"
)

// Initialize sets up the PortAudio subsystem. Must be paired with
// Terminate().
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// paDevicesFunc is swappable in tests.
var paDevicesFunc = portaudio.Devices

// HostDevices returns all devices the host exposes, in PortAudio order.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}
	return devices, nil
}

// InputDevice retrieves the input device for deviceID, or the system
// default when deviceID is config.DefaultDeviceID (-1).
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.DefaultDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) has no input channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// ListDevices prints every host device with its type, channel counts,
// sample rate, and latency range.
func ListDevices() error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	infos, err := paDevicesFunc()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")
	for i, device := range devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Printf("    Latency: Low=%.2fms, High=%.2fms\n",
			infos[i].DefaultLowInputLatency.Seconds()*1000,
			infos[i].DefaultHighInputLatency.Seconds()*1000)
		fmt.Println()
	}
	return nil
}
