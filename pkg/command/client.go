/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"fmt"
	"net"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-counter/pkg/config"
	counterpkg "jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/srv"
	srvcounter "jinr.ru/greenlab/go-counter/pkg/srv/counter"
)

// ErrStatus returned when the API answers with a non 200 status
type ErrStatus struct {
	Status string
	Body   string
}

func (e ErrStatus) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

// NewApiClient talks to the API of a server running with cfg. A wildcard
// listen address is reached through the loopback interface.
func NewApiClient(cfg *config.Config) *ApiClient {
	host := cfg.ApiConfig.Address
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", srv.Endpoint(host, cfg.ApiConfig.Port)),
	}
}

func check(r *req.Resp) error {
	if r.Response().StatusCode != 200 {
		return ErrStatus{
			Status: r.Response().Status,
			Body:   strings.TrimSpace(r.String()),
		}
	}
	return nil
}

func (c *ApiClient) get(path string, v interface{}, params ...interface{}) error {
	r, err := req.Get(c.ApiPrefix+path, params...)
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	return r.ToJSON(v)
}

// State ...
func (c *ApiClient) State() (*srvcounter.StateResp, error) {
	state := &srvcounter.StateResp{}
	return state, c.get("/state", state)
}

// Info ...
func (c *ApiClient) Info() (*srvcounter.Info, error) {
	info := &srvcounter.Info{}
	return info, c.get("/info", info)
}

// Settings ...
func (c *ApiClient) Settings() (*counterpkg.Settings, error) {
	settings := &counterpkg.Settings{}
	return settings, c.get("/settings", settings)
}

// Counts returns the rates of the last counting window
func (c *ApiClient) Counts() ([]float64, error) {
	counts := &srvcounter.CountsResp{}
	if err := c.get("/counts", counts); err != nil {
		return nil, err
	}
	return counts.Counts, nil
}

// RegRead sends request to read a word of the counter window, offset is hexadecimal
func (c *ApiClient) RegRead(offset string) (string, error) {
	reg := &srvcounter.RegHex{}
	if err := c.get(fmt.Sprintf("/reg/%s", offset), reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// History returns up to limit recorded runs, newest first
func (c *ApiClient) History(limit int) ([]*srvcounter.Record, error) {
	var records []*srvcounter.Record
	if err := c.get("/history", &records, req.QueryParam{"limit": limit}); err != nil {
		return nil, err
	}
	return records, nil
}

// Command dispatches a protocol command line through the API
func (c *ApiClient) Command(line string) (*srvcounter.CommandResult, error) {
	r, err := req.Post(c.ApiPrefix+"/command", req.BodyJSON(&srvcounter.CommandRequest{Line: line}))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	result := &srvcounter.CommandResult{}
	return result, r.ToJSON(result)
}
