package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/embd.go/pkg/l1"
)

// Registrar announces a board over MQTT and carries its link and
// telemetry traffic.
type Registrar struct {
	Queue *Queue
	Info  l1.BoardInfo
	Link  *ReadWriter

	metaJSON []byte
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.BoardInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("embd:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.QoS = QoSFromURL(brokerURL)
	r.Queue.OnConnect = func(*Queue) { r.announce() }
	r.Link = NewPacketReadWriter(r.Queue).ForBoard(info.Ref)
	return r, nil
}

// Name implements Named.
func (r *Registrar) Name() string {
	return "mqtt:" + r.Info.Ref.Name()
}

// PublishTelemetry publishes an encoded telemetry snapshot.
func (r *Registrar) PublishTelemetry(payload []byte) error {
	token := r.Queue.Pub(r.Info.Ref.Name()+TopicTelemetry, payload)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	if token := r.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	r.Queue.PubWith(r.Info.Ref.Name()+TopicMeta, nil, 1, true).Wait()
	r.Queue.Close()
	return ctx.Err()
}

func (r *Registrar) announce() {
	glog.Infof("announce %s", r.Info.Ref.Name())
	r.Queue.PubWith(r.Info.Ref.Name()+TopicMeta, r.metaJSON, 1, true)
}
