package util

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// NewHTTPRequest performs one http call and returns the status code and
// the response body.
func NewHTTPRequest(method string, url string, bodyString string, header map[string]string) (int, string, error) {
	switch method {
	case "GET":
		return do("GET", url, "", header)
	case "POST":
		return do("POST", url, bodyString, header)
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}
}

func do(method, url, bodyString string, header map[string]string) (int, string, error) {
	var req *http.Request
	var err error
	if bodyString != "" {
		req, err = http.NewRequest(method, url, strings.NewReader(bodyString))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := ioutil.ReadAll(rs.Body)
	if err != nil {
		return 0, "", err
	}

	return rs.StatusCode, string(bodyBytes), nil
}
