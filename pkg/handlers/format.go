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

package handlers

import (
	"strconv"
	"strings"

	"jinr.ru/greenlab/go-counter/pkg/counter"
	"jinr.ru/greenlab/go-counter/pkg/dispatch"
)

const OK = "OK"

func arg(args []string, i int, missing string) (string, error) {
	if len(args) <= i {
		return "", dispatch.ErrMissingArgument{What: missing}
	}
	return args[i], nil
}

func parseUint(s, what string) (uint32, error) {
	return parseUintBase(s, 10, what)
}

// parseUintBase with base 0 accepts 0x and 0o prefixes
func parseUintBase(s string, base int, what string) (uint32, error) {
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, dispatch.ErrInvalidArgument{Value: s, What: what}
	}
	return uint32(v), nil
}

func parseFloat(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, dispatch.ErrInvalidArgument{Value: s, What: what}
	}
	return v, nil
}

// parseFlag accepts any integer, non zero means true
func parseFlag(s, what string) (bool, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return false, dispatch.ErrInvalidArgument{Value: s, What: what}
	}
	return v != 0, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

// joinChannels renders all values of channel 1, then all of channel 2
func joinChannels(channels [counter.NumChannels][]float64) string {
	parts := make([]string, 0, counter.NumChannels)
	for _, values := range channels {
		parts = append(parts, joinFloats(values))
	}
	return strings.Join(parts, ",")
}

// transpose turns a list of per channel counts into per channel lists
func transpose(counts []counter.Counts) [counter.NumChannels][]float64 {
	var channels [counter.NumChannels][]float64
	for ch := range channels {
		channels[ch] = make([]float64, len(counts))
		for i, c := range counts {
			channels[ch][i] = c[ch]
		}
	}
	return channels
}
