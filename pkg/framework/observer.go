package framework

import (
	"github.com/golang/glog"

	"github.com/robotalks/embd.go/pkg/l0/task"
)

// LogObserver returns a scheduler Observer writing to glog:
// task lifecycle at V(4), every step at V(6).
func LogObserver(name string) task.Observer {
	return task.ObserveFunc(func(ev task.Event) {
		switch ev.Kind {
		case task.EventAdded:
			glog.V(4).Infof("%s: task %q added", name, ev.Task.Name())
		case task.EventRemoved:
			glog.V(4).Infof("%s: task %q removed, exit code %d", name, ev.Task.Name(), ev.Task.ExitCode())
		case task.EventStepped:
			glog.V(6).Infof("%s: task %q %s", name, ev.Task.Name(), ev.Status)
		case task.EventDrained:
			glog.V(4).Infof("%s: all tasks removed, exit code %d", name, ev.Code)
		}
	})
}

// ObserverMux fans events out to multiple observers.
type ObserverMux []task.Observer

// Observe implements task.Observer.
func (m ObserverMux) Observe(ev task.Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}
