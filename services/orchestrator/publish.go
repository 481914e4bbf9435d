package orchestrator

import (
	"ringlight-go/bus"
	"ringlight-go/errcode"
	"ringlight-go/services/thermo"
	"ringlight-go/types"
)

// published remembers what the bus last saw so unchanged state is not
// republished every iteration.
type published struct {
	ringGen    uint32
	modeGen    uint32
	address    string
	tempDirty  bool
	tempFailed bool
}

func (o *Orchestrator) publish(force bool) {
	now := o.res.Clock.Now().UnixMilli()

	if g := o.res.Ring.Generation(); force || g != o.pub.ringGen {
		o.pub.ringGen = g
		o.conn.Publish(o.conn.NewMessage(bus.T("state", "ring"), o.res.Ring.State(), true))
	}

	mode := o.res.Mode
	if g := mode.Generation(); force || g != o.pub.modeGen || o.status.Data.Address != o.pub.address {
		o.pub.modeGen = g
		o.pub.address = o.status.Data.Address
		o.conn.Publish(o.conn.NewMessage(bus.T("state", "mode"), types.ModeState{
			Mode:    mode.Get().String(),
			Address: o.status.Data.Address,
			TS:      now,
		}, true))
	}

	if o.pub.tempDirty {
		o.pub.tempDirty = false
		t := o.status.Data.TemperatureC
		v := types.TemperatureValue{OK: t == t, TS: now}
		if v.OK {
			v.DeciC = deci(t)
		}
		o.conn.Publish(o.conn.NewMessage(bus.T("state", "env", "temperature"), v, true))
	}
}

// subsystem records whether an optional part came up.
func (o *Orchestrator) subsystem(name string, err error) {
	st := types.SubsystemStatus{Link: types.LinkUp, TS: o.res.Clock.Now().UnixMilli()}
	if err != nil {
		st.Link = types.LinkDown
		st.Error = string(errcode.Of(err))
	}
	o.conn.Publish(o.conn.NewMessage(bus.T("state", name), st, true))
}

func sensorInfo(sensor string, a thermo.Address) types.TemperatureInfo {
	return types.TemperatureInfo{Sensor: sensor, Address: a.String()}
}

// deci rounds t to tenths of a degree.
func deci(t float32) int16 {
	if t < 0 {
		return int16(t*10 - 0.5)
	}
	return int16(t*10 + 0.5)
}
