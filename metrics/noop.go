// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopProvider hands out a meter that drops every sample.
type noopProvider struct{}

func (noopProvider) counter(string) CountMeter { return discard{} }
func (noopProvider) counterVec(string, []string) CountVecMeter { return discard{} }
func (noopProvider) gauge(string) GaugeMeter { return discard{} }
func (noopProvider) gaugeVec(string, []string) GaugeVecMeter { return discard{} }
func (noopProvider) handler() http.Handler { return nil }
func (noopProvider) histogramVec(string, []string, []int64) HistogramVecMeter {
	return discard{}
}

type discard struct{}

func (discard) Add(int64) {}
func (discard) Set(int64) {}
func (discard) AddWithLabel(int64, map[string]string) {}
func (discard) SetWithLabel(int64, map[string]string) {}
func (discard) ObserveWithLabels(int64, map[string]string) {}
