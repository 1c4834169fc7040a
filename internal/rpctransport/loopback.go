// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpctransport

import (
	"fmt"
	"io"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	iceGatherTimeout    = 15 * time.Second
	dataChannelOpenWait = 10 * time.Second
)

// NewLoopbackPair establishes two PeerConnections on the local machine
// and returns one Session per end, connected by a single ordered,
// reliable data channel. It performs SDP offer/answer signaling
// in-process (no Signaler, no network round trip) since both peers live
// in the same process — useful for tests, standing in for the full
// daemon-to-daemon signaling exchange a deployed RPC session would use.
//
// Both ends come back wrapped in a Session, which only ever originates
// Transact/SendDecStrong calls and dispatches replies — it never serves
// inbound requests. Pairing two Sessions this way is right for a
// demo or a client-only load test; a caller that needs one end to act
// as a server should use newLoopbackChannels directly and drive that
// end's raw io.ReadWriteCloser itself.
func NewLoopbackPair(maxIncomingThreads int) (a *Session, b *Session, err error) {
	channelA, channelB, err := newLoopbackChannels()
	if err != nil {
		return nil, nil, err
	}
	return New(channelA, maxIncomingThreads), New(channelB, maxIncomingThreads), nil
}

// newLoopbackChannels performs the PeerConnection setup and signaling
// for NewLoopbackPair and returns the two detached data channels
// before either is wrapped in a Session.
func newLoopbackChannels() (a io.ReadWriteCloser, b io.ReadWriteCloser, err error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))

	offerer, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, fmt.Errorf("rpctransport: creating offerer: %w", err)
	}
	answerer, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		offerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: creating answerer: %w", err)
	}

	answererChannel := make(chan *webrtc.DataChannel, 1)
	answerer.OnDataChannel(func(dc *webrtc.DataChannel) {
		answererChannel <- dc
	})

	offererDC, err := offerer.CreateDataChannel("rpc", nil)
	if err != nil {
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: creating data channel: %w", err)
	}

	if err := negotiate(offerer, answerer); err != nil {
		offerer.Close()
		answerer.Close()
		return nil, nil, err
	}

	offererOpen := make(chan struct{})
	offererDC.OnOpen(func() { close(offererOpen) })

	var answererDC *webrtc.DataChannel
	select {
	case answererDC = <-answererChannel:
	case <-time.After(dataChannelOpenWait):
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: answerer never received data channel")
	}
	answererOpen := make(chan struct{})
	answererDC.OnOpen(func() { close(answererOpen) })

	select {
	case <-offererOpen:
	case <-time.After(dataChannelOpenWait):
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: offerer data channel never opened")
	}
	select {
	case <-answererOpen:
	case <-time.After(dataChannelOpenWait):
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: answerer data channel never opened")
	}

	offererRaw, err := offererDC.Detach()
	if err != nil {
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: detaching offerer channel: %w", err)
	}
	answererRaw, err := answererDC.Detach()
	if err != nil {
		offerer.Close()
		answerer.Close()
		return nil, nil, fmt.Errorf("rpctransport: detaching answerer channel: %w", err)
	}

	return offererRaw, answererRaw, nil
}

// negotiate performs the SDP offer/answer exchange directly between two
// in-process PeerConnections, waiting for ICE candidate gathering to
// complete on each side before handing the SDP to the other (vanilla
// ICE, matching transport/webrtc.go's establishOutbound).
func negotiate(offerer, answerer *webrtc.PeerConnection) error {
	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("rpctransport: creating offer: %w", err)
	}
	offerGathered := webrtc.GatheringCompletePromise(offerer)
	if err := offerer.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("rpctransport: setting offerer local description: %w", err)
	}
	select {
	case <-offerGathered:
	case <-time.After(iceGatherTimeout):
		return fmt.Errorf("rpctransport: offerer ICE gathering timed out")
	}

	if err := answerer.SetRemoteDescription(*offerer.LocalDescription()); err != nil {
		return fmt.Errorf("rpctransport: setting answerer remote description: %w", err)
	}
	answer, err := answerer.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("rpctransport: creating answer: %w", err)
	}
	answerGathered := webrtc.GatheringCompletePromise(answerer)
	if err := answerer.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("rpctransport: setting answerer local description: %w", err)
	}
	select {
	case <-answerGathered:
	case <-time.After(iceGatherTimeout):
		return fmt.Errorf("rpctransport: answerer ICE gathering timed out")
	}

	if err := offerer.SetRemoteDescription(*answerer.LocalDescription()); err != nil {
		return fmt.Errorf("rpctransport: setting offerer remote description: %w", err)
	}
	return nil
}
