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

package layers

import (
	"bytes"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// ResponseLayerNum identifies the layer
	ResponseLayerNum = 2002
	// ErrorPrefix starts every error response
	ErrorPrefix = "ERR: "
)

// ResponseLayer is one response line, either a payload or an error message
type ResponseLayer struct {
	layers.BaseLayer
	Text  string
	Error bool
}

var ResponseLayerType = gopacket.RegisterLayerType(ResponseLayerNum,
	gopacket.LayerTypeMetadata{Name: "ResponseLayerType", Decoder: gopacket.DecodeFunc(DecodeResponseLayer)})

// LayerType returns the type of the response layer in the layer catalog
func (resp *ResponseLayer) LayerType() gopacket.LayerType {
	return ResponseLayerType
}

func (resp *ResponseLayer) CanDecode() gopacket.LayerClass {
	return ResponseLayerType
}

func (resp *ResponseLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Sanitize makes sure text never carries the delimiter
func Sanitize(text string) string {
	return lineBreaks.Replace(text)
}

// Line renders the response without delimiter
func (resp *ResponseLayer) Line() string {
	if resp.Error {
		return ErrorPrefix + Sanitize(resp.Text)
	}
	return Sanitize(resp.Text)
}

// Values splits a payload into its comma separated fields
func (resp *ResponseLayer) Values() []string {
	if resp.Text == "" {
		return nil
	}
	return strings.Split(resp.Text, ",")
}

func (resp *ResponseLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	resp.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}
	line := string(bytes.TrimSuffix(data, []byte(Delimiter)))
	resp.Error = strings.HasPrefix(line, ErrorPrefix)
	resp.Text = strings.TrimPrefix(line, ErrorPrefix)
	return nil
}

// SerializeTo writes the response line followed by the delimiter
func (resp *ResponseLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	line := resp.Line() + Delimiter
	buf, err := b.AppendBytes(len(line))
	if err != nil {
		return err
	}
	copy(buf, line)
	return nil
}

func DecodeResponseLayer(data []byte, p gopacket.PacketBuilder) error {
	resp := &ResponseLayer{}
	err := resp.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(resp)
	return nil
}

// ParseResponse decodes one response line
func ParseResponse(data []byte) (*ResponseLayer, error) {
	packet := gopacket.NewPacket(data, ResponseLayerType, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	return packet.Layer(ResponseLayerType).(*ResponseLayer), nil
}

// ResponseToBytes serializes a response for sending
func ResponseToBytes(resp *ResponseLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, resp)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
