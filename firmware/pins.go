//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_US = 1000 // Frame interval in microseconds
	NUM_CHANNELS       = 4    // Number of CT inputs streamed per frame

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Serial configuration
	// Baud rate calculation: Format "unix_micros,c0,c1,c2,c3\n"
	// Example: "1234567890123456,4095,4095,4095,4095\n" = ~37 bytes max per line
	// 1000 frames/sec * 37 bytes/line = 37,000 bytes/sec
	// UART 8N1: 10 bits/byte = 370,000 baud minimum.
	// USB CDC ignores the rate; on a real UART drop to 250 frames/sec at 115200.
	UART_BAUD_RATE = 115200
)

// CT input pins, one per channel
var PIN_CT = [NUM_CHANNELS]machine.Pin{machine.A0, machine.A1, machine.A2, machine.A3}
