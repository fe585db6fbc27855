//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcCT [NUM_CHANNELS]machine.ADC
	uart  = machine.UART0

	// Latest frame
	counts [NUM_CHANNELS]uint16

	// Timing
	lastFrame time.Time
)

func main() {
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	// Configure ADC pins and set up ADCs with highest resolution
	for i, pin := range PIN_CT {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcCT[i] = machine.ADC{Pin: pin}
		adcCT[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastFrame = time.Now()

	for {
		now := time.Now()

		if now.Sub(lastFrame) >= SAMPLE_INTERVAL_US*time.Microsecond {
			readChannels()
			outputFrame(now)
			lastFrame = now
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(50 * time.Microsecond)
	}
}

// readChannels samples every CT input back to back.
// machine.ADC.Get always returns a 16-bit scaled value.
func readChannels() {
	for i := range adcCT {
		counts[i] = adcCT[i].Get() >> (16 - ADC_RESOLUTION)
	}
}

func outputFrame(now time.Time) {
	// Output format: "unix_micros,c0,c1,c2,c3\n"
	// Example: "1234567890123,2048,2051,2047,2049\n"
	print(now.UnixMicro())
	for _, c := range counts {
		print(",")
		print(c)
	}
	print("\n")
}
