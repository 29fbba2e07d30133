package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kava-labs/envelope-rewrite-service/decode"
	"github.com/kava-labs/envelope-rewrite-service/logging"
	"github.com/kava-labs/envelope-rewrite-service/service/rewritemdw"
)

// createEchoHandler creates the handler served behind the rewrite stage.
// JSON envelopes are replied with the same msg, any other body is
// replied unchanged without a content type.
func createEchoHandler(serviceLogger *logging.ServiceLogger) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("error reading request body: %s", err), http.StatusBadRequest)
			return
		}

		if !decode.IsJSONContentType(r.Header.Get("Content-Type")) {
			w.WriteHeader(http.StatusOK)
			w.Write(rawBody)
			return
		}

		envelope, err := decode.DecodeEnvelope(rawBody)
		if err != nil {
			serviceLogger.Debug().Err(err).Msg("echo handler received an invalid envelope")

			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		encoded, err := decode.EncodeEnvelope(envelope)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", decode.JSONContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(encoded)
	}
}

// createHealthcheckHandler creates a health check handler function that
// will respond 200 ok if the service is able to connect to
// it's dependencies and functioning as expected
func createHealthcheckHandler(service *EnvelopeService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var combinedErrors error

		service.Debug().Msg("/healthcheck called")

		// check that the database is reachable
		err := service.Database.HealthCheck()
		if err != nil {
			service.Logger.Error().
				Err(err).
				Msg("database healthcheck failed")

			errMsg := fmt.Errorf("envelope rewrite service unable to connect to database")
			combinedErrors = errors.Join(combinedErrors, errMsg)
		}

		// check that the stats store is reachable
		err = service.Stats.Healthcheck(r.Context())
		if err != nil {
			service.Logger.Error().
				Err(err).
				Msg("stats store healthcheck failed")

			errMsg := fmt.Errorf("envelope rewrite service unable to connect to stats store: %v", err)
			combinedErrors = errors.Join(combinedErrors, errMsg)
		}

		if combinedErrors != nil {
			w.WriteHeader(http.StatusInternalServerError)

			w.Write([]byte(combinedErrors.Error()))

			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("envelope rewrite service is healthy"))
	}
}

// createServicecheckHandler creates a service check handler function that
// will respond 200 ok if the service is running
func createServicecheckHandler(service *EnvelopeService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/servicecheck called")

		w.WriteHeader(http.StatusOK)

		w.Write([]byte("envelope rewrite service is in service"))
	}
}

// createStatsHandler creates a handler function responding with the
// count of every rewrite outcome, outcomes never seen are reported as 0
func createStatsHandler(service *EnvelopeService) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		service.Debug().Msg("/stats called")

		counts, err := service.Stats.Counts(r.Context())
		if err != nil {
			service.Error().Msg(fmt.Sprintf("error %s getting rewrite outcome counts", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		response := StatsResponse{}
		for _, key := range rewritemdw.KnownCounterKeys() {
			response[key] = 0
		}
		for key, count := range counts {
			response[key] = count
		}

		// return response for client
		if err := MarshalJSONResponse(response, w); err != nil {
			service.Error().Msg(fmt.Sprintf("error %s encoding %+v to json", err, response))
		}
	}
}

// MarshalJSONResponse marshals an interface into the response body and sets JSON content type headers
func MarshalJSONResponse(obj interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		return err
	}
	return nil
}
