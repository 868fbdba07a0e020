// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package paymentsim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mallkit/ordersaga/internal/ordersaga/messaging"
)

func TestDeclineOver(t *testing.T) {
	rule := DeclineOver(1000)

	declined, msg := rule(messaging.PaymentRequest{Amount: 1000.01})
	assert.True(t, declined)
	assert.NotEmpty(t, msg)

	declined, _ = rule(messaging.PaymentRequest{Amount: 1000})
	assert.False(t, declined)

	declined, _ = rule(messaging.PaymentRequest{Amount: 9.99})
	assert.False(t, declined)
}

func TestNew_NilRuleApprovesEverything(t *testing.T) {
	sim := New([]string{"localhost:9092"}, nil, 0)
	defer sim.Close()

	declined, _ := sim.rule(messaging.PaymentRequest{Amount: 1e9})
	assert.False(t, declined)
}
