package thermo

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"ringlight-go/drivers/aht20"
	"ringlight-go/errcode"
)

// AHT20 adapts the I2C humidity/temperature sensor. It has a single device,
// reported at index 0 with its bus address as the id.
type AHT20 struct {
	dev     aht20.Device
	timeout time.Duration
	poll    time.Duration
	sleep   func(time.Duration)
}

func NewAHT20(bus drivers.I2C) *AHT20 {
	return &AHT20{
		dev:     aht20.New(bus),
		timeout: 250 * time.Millisecond,
		poll:    15 * time.Millisecond,
		sleep:   time.Sleep,
	}
}

func (s *AHT20) id() Address { return Address{byte(s.dev.Address)} }

func (s *AHT20) Begin() error {
	if err := s.dev.Configure(); err != nil {
		return errcode.Wrap(errcode.NoDevice, "aht20.begin", err)
	}
	return nil
}

func (s *AHT20) Address(index int) (Address, error) {
	if index != 0 {
		return Address{}, errcode.NotFound
	}
	return s.id(), nil
}

func (s *AHT20) RequestByAddress(a Address) error {
	if a != s.id() {
		return errcode.NotFound
	}
	return s.dev.Trigger()
}

// TempC waits for the pending conversion with bounded polling.
func (s *AHT20) TempC(a Address) (float32, error) {
	if a != s.id() {
		return nan(), errcode.NotFound
	}
	var smp aht20.Sample
	var waited time.Duration
	for {
		err := s.dev.Collect(&smp)
		switch {
		case err == nil:
			return float32(smp.DeciCelsius()) / 10, nil
		case errors.Is(err, aht20.ErrNotReady):
			if waited >= s.timeout {
				return nan(), errcode.Wrap(errcode.Timeout, "aht20.read", err)
			}
			s.sleep(s.poll)
			waited += s.poll
		default:
			return nan(), err
		}
	}
}
