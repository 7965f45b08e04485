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
	// CommandLayerNum identifies the layer
	CommandLayerNum = 2001
	// Delimiter terminates every command and every response on the wire
	Delimiter = "\r\n"
	// Separators split a command line into name and arguments
	Separators = " ,"
)

// CommandLayer is one command line: NAME[ ARG[,ARG]*]
type CommandLayer struct {
	layers.BaseLayer
	Name string
	Args []string
}

var CommandLayerType = gopacket.RegisterLayerType(CommandLayerNum,
	gopacket.LayerTypeMetadata{Name: "CommandLayerType", Decoder: gopacket.DecodeFunc(DecodeCommandLayer)})

// LayerType returns the type of the command layer in the layer catalog
func (cmd *CommandLayer) LayerType() gopacket.LayerType {
	return CommandLayerType
}

func (cmd *CommandLayer) CanDecode() gopacket.LayerClass {
	return CommandLayerType
}

func (cmd *CommandLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// Tokenize splits a line on spaces and commas and drops empty tokens
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(Separators, r)
	})
}

// DecodeFromBytes parses a command line. A trailing delimiter is stripped.
func (cmd *CommandLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	cmd.BaseLayer = layers.BaseLayer{
		Contents: data,
		Payload:  []byte{},
	}
	line := bytes.TrimSuffix(data, []byte(Delimiter))
	tokens := Tokenize(string(line))
	cmd.Name = ""
	cmd.Args = nil
	if len(tokens) > 0 {
		cmd.Name = tokens[0]
		cmd.Args = tokens[1:]
	}
	return nil
}

// Line renders the command without delimiter
func (cmd *CommandLayer) Line() string {
	if len(cmd.Args) == 0 {
		return cmd.Name
	}
	return cmd.Name + " " + strings.Join(cmd.Args, ",")
}

// SerializeTo writes the command line followed by the delimiter
func (cmd *CommandLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	line := cmd.Line() + Delimiter
	buf, err := b.AppendBytes(len(line))
	if err != nil {
		return err
	}
	copy(buf, line)
	return nil
}

func DecodeCommandLayer(data []byte, p gopacket.PacketBuilder) error {
	cmd := &CommandLayer{}
	err := cmd.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(cmd)
	return nil
}

// ParseCommand decodes one framed command
func ParseCommand(data []byte) (*CommandLayer, error) {
	packet := gopacket.NewPacket(data, CommandLayerType, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	return packet.Layer(CommandLayerType).(*CommandLayer), nil
}

// CommandToBytes serializes a command for sending
func CommandToBytes(name string, args ...string) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, &CommandLayer{Name: name, Args: args})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
