/*
Copyright 2026 ATFT Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package statusserver implements the read-only diagnostics HTTP endpoint:
// a local-only window onto the registry's current snapshot for an operator
// (or a support script) to poll without going through the console UI.
package statusserver

import (
	"net"
	"net/http"

	"github.com/google/atft/pkg/auditlog"
	"github.com/google/atft/pkg/device"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const pathStatus = "/api/v1/status"

// Registry is the subset of the device registry the status endpoint reads.
type Registry interface {
	Snapshot() []*device.Target
	Appliance() *device.Appliance
}

// Server is a net/http server exposing Registry's current state as JSON.
// Its Start/Stop/WaitUntilReady shape matches the teacher's aggregation
// server: a stop channel the caller signals, a ready channel Start fires
// once it's actually listening.
type Server struct {
	BindAddr string
	Registry Registry

	stopCh  chan bool
	readyCh chan bool
}

// NewServer returns a Server bound to bindAddr (e.g. "127.0.0.1:8088"),
// reading from registry.
func NewServer(bindAddr string, registry Registry) *Server {
	return &Server{
		BindAddr: bindAddr,
		Registry: registry,
		stopCh:   make(chan bool),
		readyCh:  make(chan bool, 1),
	}
}

// Start binds and serves until Stop is called; it blocks until the server
// exits. WaitUntilReady unblocks once Start is actually accepting
// connections.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.HandleFunc(pathStatus, s.statusHandler).Methods(http.MethodGet)

	srv := &http.Server{Addr: s.BindAddr, Handler: r}

	l, err := net.Listen("tcp", s.BindAddr)
	if err != nil {
		return errors.Errorf("statusserver: could not listen on %v: %v", s.BindAddr, err)
	}
	defer l.Close()

	logrus.WithField(auditlog.TagField, "statusserver").Infof("serving diagnostics status on %v", s.BindAddr)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()
	s.readyCh <- true

	select {
	case <-s.stopCh:
		l.Close()
		<-done
		return nil
	case err = <-done:
		return err
	}
}

// Stop signals a running Start to exit.
func (s *Server) Stop() { s.stopCh <- true }

// WaitUntilReady blocks until Start is listening. Must only be called once
// per Start call, matching the teacher's aggregation.Server contract.
func (s *Server) WaitUntilReady() { <-s.readyCh }
