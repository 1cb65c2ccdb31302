package fakes

import (
	"context"
	"sync"

	"github.com/fridex/pkgextract/internal/extract"
)

type Parser struct {
	IDCall struct {
		mutex     sync.Mutex
		CallCount int
		Returns   struct {
			String string
		}
		Stub func() string
	}
	ParseCall struct {
		mutex     sync.Mutex
		CallCount int
		Receives  struct {
			Ctx       context.Context
			Candidate extract.Candidate
		}
		Returns struct {
			PackageRecordSlice []extract.PackageRecord
			Error              error
		}
		Stub func(context.Context, extract.Candidate) ([]extract.PackageRecord, error)
	}
}

func (f *Parser) ID() string {
	f.IDCall.mutex.Lock()
	defer f.IDCall.mutex.Unlock()
	f.IDCall.CallCount++
	if f.IDCall.Stub != nil {
		return f.IDCall.Stub()
	}
	return f.IDCall.Returns.String
}

func (f *Parser) Parse(param1 context.Context, param2 extract.Candidate) ([]extract.PackageRecord, error) {
	f.ParseCall.mutex.Lock()
	f.ParseCall.CallCount++
	f.ParseCall.Receives.Ctx = param1
	f.ParseCall.Receives.Candidate = param2
	stub := f.ParseCall.Stub
	returns := f.ParseCall.Returns
	f.ParseCall.mutex.Unlock()
	if stub != nil {
		return stub(param1, param2)
	}
	return returns.PackageRecordSlice, returns.Error
}
