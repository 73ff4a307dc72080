// Command driversim is a stand-in for the vendor terminal-driver executable.
// It listens on the channel endpoint and answers with canned responses, so
// the supervisor has a real process to kill, launch and dial during
// development and manual testing.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"time"
)

type frameRequest struct {
	Op          string `json:"op"`
	Address     string `json:"address,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	POSNumber   int    `json:"pos_number,omitempty"`
	ForceOnline bool   `json:"force_online,omitempty"`
}

type transactionResponse struct {
	TransactionStatus string    `json:"transaction_status"`
	EntryMethod       string    `json:"entry_method"`
	MerchantID        string    `json:"merchant_id"`
	MerchantName      string    `json:"merchant_name"`
	CardScheme        string    `json:"card_scheme"`
	MaskedPAN         string    `json:"masked_pan"`
	CVM               string    `json:"cvm"`
	Amount            int64     `json:"amount"`
	CashbackAmount    int64     `json:"cashback_amount"`
	HostMessage       string    `json:"host_message"`
	DiagnosticCode    string    `json:"diagnostic_code"`
	ReceiptNumber     string    `json:"receipt_number"`
	Timestamp         time.Time `json:"timestamp"`
}

type frameResponse struct {
	Code     int                  `json:"code"`
	Response *transactionResponse `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func main() {
	listen := flag.String("listen", "127.0.0.1:9410", "endpoint to listen on")
	behavior := flag.String("behavior", "approve",
		"response behavior: approve | decline | swipe | ambiguous | refuse")
	merchant := flag.String("merchant", "DEMO KIOSK LTD", "merchant name on responses")
	flag.Parse()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("listen %s: %v", *listen, err)
	}
	log.Printf("driversim listening on %s (behavior=%s)", *listen, *behavior)

	sim := &simulator{behavior: *behavior, merchant: *merchant, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("accept: %v", err)
			continue
		}
		go sim.serve(conn)
	}
}

type simulator struct {
	behavior string
	merchant string
	rng      *rand.Rand
	receipts int
}

func (s *simulator) serve(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	enc := json.NewEncoder(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var req frameRequest
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(frameResponse{Code: 5, Error: "bad frame: " + err.Error()})
			continue
		}
		if err := enc.Encode(s.handle(req)); err != nil {
			log.Printf("write: %v", err)
			return
		}
	}
}

func (s *simulator) handle(req frameRequest) frameResponse {
	log.Printf("<- %s amount=%d", req.Op, req.Amount)

	switch req.Op {
	case "connect":
		if s.behavior == "refuse" {
			return frameResponse{Code: 1, Error: "terminal unreachable"}
		}
		return frameResponse{Code: 0}

	case "disconnect":
		return frameResponse{Code: 0}

	case "pay":
		return frameResponse{Code: 0, Response: s.payResponse(req.Amount)}

	case "reverse":
		resp := s.payResponse(req.Amount)
		resp.TransactionStatus = "SUCCESSFUL"
		resp.HostMessage = "REVERSAL ACCEPTED"
		return frameResponse{Code: 0, Response: resp}

	default:
		return frameResponse{Code: 5, Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func (s *simulator) payResponse(amount int64) *transactionResponse {
	s.receipts++
	resp := &transactionResponse{
		TransactionStatus: "SUCCESSFUL",
		EntryMethod:       "CHIP",
		MerchantID:        "M0042",
		MerchantName:      s.merchant,
		CardScheme:        "VISA",
		MaskedPAN:         fmt.Sprintf("************%04d", s.rng.Intn(10000)),
		CVM:               "PIN",
		Amount:            amount,
		HostMessage:       "APPROVED",
		DiagnosticCode:    "00",
		ReceiptNumber:     fmt.Sprintf("R%06d", s.receipts),
		Timestamp:         time.Now().UTC(),
	}

	switch s.behavior {
	case "decline":
		resp.TransactionStatus = "FAILED"
		resp.HostMessage = "DECLINED"
		resp.DiagnosticCode = "05"
	case "swipe":
		resp.EntryMethod = "SWIPE"
		resp.CVM = "SIGNATURE"
	case "ambiguous":
		resp.TransactionStatus = "PENDING"
		resp.HostMessage = "REFERRAL"
		resp.DiagnosticCode = "01"
	}
	return resp
}
